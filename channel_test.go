package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFrameChannel_SingleSlot(t *testing.T) {
	fc := newFrameChannel()

	first := []byte{1}
	second := []byte{2}

	if err := fc.Send(first); err != nil {
		t.Fatalf("first Send into empty slot: %v", err)
	}

	// The second send must suspend until the slot drains, never drop
	// or overwrite.
	sent := make(chan error, 1)
	go func() { sent <- fc.Send(second) }()

	select {
	case err := <-sent:
		t.Fatalf("second Send completed with slot full (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	ctx := context.Background()
	got, err := fc.Receiver().Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got[0] != 1 {
		t.Fatalf("expected first frame, got %v", got)
	}

	if err := <-sent; err != nil {
		t.Fatalf("second Send after drain: %v", err)
	}
	got, err = fc.Receiver().Recv(ctx)
	if err != nil {
		t.Fatalf("Recv second frame: %v", err)
	}
	if got[0] != 2 {
		t.Fatalf("expected second frame, got %v", got)
	}
}

func TestFrameChannel_SendAfterReceiverClosed(t *testing.T) {
	fc := newFrameChannel()
	fc.Receiver().Close()

	if err := fc.Send([]byte{1}); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("Send after receiver close: expected ErrSendFailed, got %v", err)
	}
}

func TestFrameChannel_CloseReleasesBlockedSender(t *testing.T) {
	fc := newFrameChannel()
	if err := fc.Send([]byte{1}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := make(chan error, 1)
	go func() { sent <- fc.Send([]byte{2}) }()

	time.Sleep(20 * time.Millisecond)
	fc.Close()

	select {
	case err := <-sent:
		if !errors.Is(err, ErrSendFailed) {
			t.Fatalf("blocked Send after Close: expected ErrSendFailed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Send not released by Close")
	}
}

func TestReceiver_DrainsBufferedFrameAfterClose(t *testing.T) {
	fc := newFrameChannel()
	if err := fc.Send([]byte{7}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	fc.Close()

	got, err := fc.Receiver().Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv of buffered frame after Close: %v", err)
	}
	if got[0] != 7 {
		t.Fatalf("expected buffered frame, got %v", got)
	}

	if _, err := fc.Receiver().Recv(context.Background()); !errors.Is(err, ErrReceiverClosed) {
		t.Fatalf("Recv on drained closed receiver: expected ErrReceiverClosed, got %v", err)
	}
}

func TestReceiver_ContextCancel(t *testing.T) {
	fc := newFrameChannel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := fc.Receiver().Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestFrameChannel_SameReceiverEveryCall(t *testing.T) {
	fc := newFrameChannel()
	if fc.Receiver() != fc.Receiver() {
		t.Fatal("Receiver must return the same handle on every call")
	}
}
