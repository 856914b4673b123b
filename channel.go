package capture

import (
	"context"
	"sync"
)

// FrameChannel is the single-slot link between a capture loop and its
// consumer. The one-frame capacity is the backpressure mechanism: a
// lagging consumer stalls the producer, no frame is ever dropped or
// overwritten.
type FrameChannel struct {
	frames chan []byte
	recv   *Receiver
}

func newFrameChannel() *FrameChannel {
	frames := make(chan []byte, 1)
	return &FrameChannel{
		frames: frames,
		recv: &Receiver{
			frames: frames,
			done:   make(chan struct{}),
		},
	}
}

// Send pushes one frame, blocking while the slot is full. Fails with
// ErrSendFailed once the receiver has been closed.
func (c *FrameChannel) Send(frame []byte) error {
	// Prefer failure over a buffered send when the consumer is
	// already gone.
	select {
	case <-c.recv.done:
		return ErrSendFailed
	default:
	}
	select {
	case c.frames <- frame:
		return nil
	case <-c.recv.done:
		return ErrSendFailed
	}
}

// Receiver returns the channel's single receive handle.
func (c *FrameChannel) Receiver() *Receiver { return c.recv }

// Close detaches the consumer side. Blocked senders and receivers are
// released with ErrSendFailed / ErrReceiverClosed.
func (c *FrameChannel) Close() { c.recv.Close() }

// Receiver is the exclusive-access read side of a FrameChannel. The
// session hands out the same Receiver on every Subscribe call; an
// internal mutex serializes concurrent readers, so each frame goes to
// whichever reader acquires the lock first.
type Receiver struct {
	mu        sync.Mutex
	frames    <-chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Recv blocks until a frame is available, the receiver is closed, or
// the context is cancelled.
func (r *Receiver) Recv(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Drain a frame buffered before close, if any.
	select {
	case frame := <-r.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-r.frames:
		return frame, nil
	case <-r.done:
		return nil, ErrReceiverClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close detaches the receiver. The producer loop observes this as a
// fatal send failure on its next push.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}
