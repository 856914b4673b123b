package capture

// frameSource is the per-variant half of a capture loop: acquire one
// frame, and release whatever native handle the acquisition left
// behind. The guard check, channel push and error classification are
// shared in runLoop.
type frameSource interface {
	// acquireFrame obtains one frame as an owned byte buffer.
	// ok is false on a transient miss (acquisition timeout, empty
	// sample): no frame this iteration, the loop continues. A non-nil
	// error is fatal and terminates the loop.
	acquireFrame() (frame []byte, ok bool, err error)

	// releaseFrame releases the native frame handle held since the
	// last acquisition, if any. Must be idempotent: the loop calls it
	// on every exit path, including after acquisition errors.
	releaseFrame() error
}

// runLoop drives a capture loop until the guard goes idle or a fatal
// error occurs. The native handle is held across the channel send, so
// backpressure also throttles platform-side frame accumulation, and is
// released even when the send fails.
func runLoop(guard *StateGuard, ch *FrameChannel, src frameSource) error {
	for guard.IsCapturing() {
		frame, ok, err := src.acquireFrame()
		if err != nil {
			src.releaseFrame()
			return err
		}
		if !ok {
			src.releaseFrame()
			continue
		}

		sendErr := ch.Send(frame)
		relErr := src.releaseFrame()
		if sendErr != nil {
			return sendErr
		}
		if relErr != nil {
			return relErr
		}
	}
	return nil
}

// sessionBase carries the guard and frame channel shared by both
// engine variants and implements the loop-lifecycle half of Session.
type sessionBase struct {
	guard  StateGuard
	frames *FrameChannel
}

func newSessionBase() sessionBase {
	return sessionBase{frames: newFrameChannel()}
}

// run executes the capture loop for src. On a fatal error the guard is
// flipped back to idle so the session can be restarted; on a clean
// exit Stop already did that.
func (s *sessionBase) run(src frameSource) error {
	if err := s.guard.TryStart(); err != nil {
		return err
	}
	err := runLoop(&s.guard, s.frames, src)
	if err != nil {
		_ = s.guard.TryStop()
	}
	return err
}

func (s *sessionBase) Stop() error { return s.guard.TryStop() }

func (s *sessionBase) Subscribe() *Receiver { return s.frames.Receiver() }
