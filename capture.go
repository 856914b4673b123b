// Package capture streams raw image frames from a display output or a
// video capture device into a single-slot backpressured channel.
//
// A Session wraps one activated source. Start runs the producer loop on
// the calling goroutine until Stop is called or a fatal platform error
// occurs; frames are read from the Receiver returned by Subscribe.
// Screen capture uses DXGI Desktop Duplication, device capture uses a
// Media Foundation source reader; both are driven through plain
// syscalls with no CGO.
package capture

import "time"

// Dimensions is the fixed frame size of a source, queried once at
// session construction.
type Dimensions struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// OutputFormat selects the pixel format a device session negotiates
// with the source reader. Screen sessions always produce the native
// BGRA desktop format and ignore it.
type OutputFormat int

const (
	// FormatRaw delivers the device's native format (NV12).
	FormatRaw OutputFormat = iota
	// FormatConverted delivers frames converted to RGB32.
	FormatConverted
)

func (f OutputFormat) String() string {
	switch f {
	case FormatRaw:
		return "raw"
	case FormatConverted:
		return "converted"
	default:
		return "unknown"
	}
}

// Session is the uniform contract over screen and device capture.
//
// A Session owns its native source handles, a state guard and a frame
// channel. At most one producer loop runs per session at any time; the
// guard rejects a second Start while capturing. All methods are safe
// for concurrent use, but the loop itself must run on a goroutine
// dedicated to it.
type Session interface {
	// Dimensions reports the fixed frame size of the source.
	Dimensions() (Dimensions, error)

	// Start runs the capture loop until Stop is called or a fatal
	// error terminates it. Returns ErrAlreadyCapturing if a loop is
	// already running.
	Start() error

	// Stop asks the running loop to exit at the top of its next
	// iteration. Returns ErrAlreadyStopped if no loop is running.
	// Worst-case latency is one in-flight acquisition attempt.
	Stop() error

	// Subscribe returns the session's receive handle. The same
	// Receiver is returned on every call; concurrent readers race
	// for each frame.
	Subscribe() *Receiver

	// Close stops any running loop, releases native resources and
	// closes the frame channel. Safe to call more than once.
	Close() error
}

// MetadataProvider is implemented by sessions that report per-frame
// change metadata (screen capture).
type MetadataProvider interface {
	Metadata() ChangeMetadata
}

// ScreenConfig configures a screen capture session.
type ScreenConfig struct {
	// DisplayIndex selects which output to duplicate (0 = primary).
	DisplayIndex int

	// AcquireTimeout bounds each frame acquisition wait.
	// Defaults to DefaultAcquireTimeout when zero.
	AcquireTimeout time.Duration
}

// DefaultAcquireTimeout is the per-iteration frame acquisition wait.
// A timeout means the desktop did not change and is not an error.
const DefaultAcquireTimeout = 500 * time.Millisecond

// MonitorInfo describes a connected display output.
type MonitorInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	IsPrimary bool   `json:"isPrimary"`
}

// VideoDeviceInfo describes an attached video capture device before
// activation.
type VideoDeviceInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}
