package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// sourceStep scripts one acquireFrame result.
type sourceStep struct {
	frame []byte
	ok    bool
	err   error
}

// scriptedSource satisfies frameSource for loop tests. Once the script
// is exhausted it behaves like an endless acquisition timeout.
type scriptedSource struct {
	mu         sync.Mutex
	steps      []sourceStep
	releaseErr error

	acquires     int
	releaseCalls int
	releases     int // releases that actually dropped a held handle
	held         bool
}

func (s *scriptedSource) acquireFrame() ([]byte, bool, error) {
	s.mu.Lock()
	s.acquires++
	if len(s.steps) == 0 {
		s.mu.Unlock()
		// Off-script: transient miss, paced like a short timeout.
		time.Sleep(time.Millisecond)
		return nil, false, nil
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.ok {
		s.held = true
	}
	s.mu.Unlock()
	return step.frame, step.ok, step.err
}

func (s *scriptedSource) releaseFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseCalls++
	if !s.held {
		return nil
	}
	s.held = false
	s.releases++
	return s.releaseErr
}

func (s *scriptedSource) acquireCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

func (s *scriptedSource) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// fakeSession drives the shared loop machinery with a scripted source.
type fakeSession struct {
	sessionBase
	src  *scriptedSource
	dims Dimensions
}

func newFakeSession(src *scriptedSource, dims Dimensions) *fakeSession {
	return &fakeSession{sessionBase: newSessionBase(), src: src, dims: dims}
}

func (s *fakeSession) Start() error { return s.run(s.src) }

func (s *fakeSession) Dimensions() (Dimensions, error) {
	if s.dims.Width == 0 || s.dims.Height == 0 {
		return Dimensions{}, ErrDimensionsUnavailable
	}
	return s.dims, nil
}

func (s *fakeSession) Close() error {
	_ = s.guard.TryStop()
	s.frames.Close()
	return nil
}

var _ Session = (*fakeSession)(nil)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_SecondStartWhileCapturing(t *testing.T) {
	sess := newFakeSession(&scriptedSource{}, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	started := make(chan error, 1)
	go func() { started <- sess.Start() }()

	waitFor(t, "loop to start", sess.guard.IsCapturing)

	if err := sess.Start(); !errors.Is(err, ErrAlreadyCapturing) {
		t.Fatalf("second Start: expected ErrAlreadyCapturing, got %v", err)
	}
	if !sess.guard.IsCapturing() {
		t.Fatal("rejected Start must leave the session capturing")
	}

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-started; err != nil {
		t.Fatalf("Start returned %v after clean Stop", err)
	}
}

func TestSession_StopWhileIdle(t *testing.T) {
	sess := newFakeSession(&scriptedSource{}, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	if err := sess.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Fatalf("Stop while idle: expected ErrAlreadyStopped, got %v", err)
	}
}

func TestLoop_TransientMissesKeepCapturing(t *testing.T) {
	// Three scripted timeouts, then endless off-script timeouts.
	src := &scriptedSource{steps: []sourceStep{
		{ok: false}, {ok: false}, {ok: false},
	}}
	sess := newFakeSession(src, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	started := make(chan error, 1)
	go func() { started <- sess.Start() }()

	waitFor(t, "three acquisition attempts", func() bool { return src.acquireCount() >= 3 })

	// No frame may have been emitted.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := sess.Subscribe().Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no frame after timeouts, Recv returned %v", err)
	}

	if !sess.guard.IsCapturing() {
		t.Fatal("loop must remain capturing through transient misses")
	}
	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-started; err != nil {
		t.Fatalf("Start returned %v after clean Stop", err)
	}
}

func TestLoop_FatalAcquisitionError(t *testing.T) {
	fatal := &AcquisitionError{Op: "AcquireNextFrame", HResult: 0x887A0026}
	src := &scriptedSource{steps: []sourceStep{{err: fatal}}}
	sess := newFakeSession(src, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	err := sess.Start()
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
	if src.releaseCalls == 0 {
		t.Fatal("release path must run on the fatal exit")
	}
	// The loop died, so the guard must be idle again.
	if err := sess.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Fatalf("Stop after fatal exit: expected ErrAlreadyStopped, got %v", err)
	}
}

func TestLoop_SendFailureIsFatal(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{{frame: []byte{1}, ok: true}}}
	sess := newFakeSession(src, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	// Consumer is gone before the first push.
	sess.Subscribe().Close()

	if err := sess.Start(); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if src.releaseCount() != 1 {
		t.Fatalf("native handle released %d times, want 1 (even when send fails)", src.releaseCount())
	}
}

func TestLoop_ReleaseErrorIsFatal(t *testing.T) {
	relErr := &AcquisitionError{Op: "ReleaseFrame", HResult: 0x80004005}
	src := &scriptedSource{
		steps:      []sourceStep{{frame: []byte{1}, ok: true}},
		releaseErr: relErr,
	}
	sess := newFakeSession(src, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	started := make(chan error, 1)
	go func() { started <- sess.Start() }()

	if _, err := sess.Subscribe().Recv(context.Background()); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-started; !errors.Is(err, relErr) {
		t.Fatalf("expected release error to surface, got %v", err)
	}
}

func TestLoop_ReleasePerDeliveredFrame(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{frame: []byte{1}, ok: true},
		{frame: []byte{2}, ok: true},
	}}
	sess := newFakeSession(src, Dimensions{Width: 64, Height: 48})
	defer sess.Close()

	started := make(chan error, 1)
	go func() { started <- sess.Start() }()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := sess.Subscribe().Recv(ctx); err != nil {
			t.Fatalf("Recv frame %d: %v", i, err)
		}
	}
	waitFor(t, "both frames released", func() bool { return src.releaseCount() == 2 })

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-started; err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestSource_ReleaseIsIdempotent(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{{frame: []byte{1}, ok: true}}}

	if _, ok, err := src.acquireFrame(); !ok || err != nil {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if err := src.releaseFrame(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := src.releaseFrame(); err != nil {
		t.Fatalf("second release must be a safe no-op, got %v", err)
	}
	if src.releases != 1 {
		t.Fatalf("handle released %d times, want exactly 1", src.releases)
	}
}

// Full-stream scenario: fixed 1920x1080 source with a padded row
// pitch, one frame, clean stop, stop-again rejection.
func TestScenario_ScreenStreamLifecycle(t *testing.T) {
	const (
		width  = 1920
		height = 1080
		stride = width*4 + 128 // pitch exceeding width*4
	)
	frame := make([]byte, stride*height)
	frame[0] = 0xAB

	src := &scriptedSource{steps: []sourceStep{{frame: frame, ok: true}}}
	sess := newFakeSession(src, Dimensions{Width: width, Height: height})
	defer sess.Close()

	dims, err := sess.Dimensions()
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if dims.Width != width || dims.Height != height {
		t.Fatalf("dimensions %dx%d, want %dx%d", dims.Width, dims.Height, width, height)
	}

	started := make(chan error, 1)
	go func() { started <- sess.Start() }()

	got, err := sess.Subscribe().Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(got) != stride*height {
		t.Fatalf("frame length %d, want stride*height = %d", len(got), stride*height)
	}
	if got[0] == 0 {
		t.Fatal("frame unexpectedly empty")
	}

	if err := sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-started; err != nil {
		t.Fatalf("Start returned %v after clean Stop", err)
	}
	if err := sess.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Fatalf("second Stop: expected ErrAlreadyStopped, got %v", err)
	}
}
