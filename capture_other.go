//go:build !windows

package capture

// Capture requires the Windows duplication and Media Foundation APIs.
// On other platforms every entry point reports ErrNotSupported.

// NewScreenSession is not available on this platform.
func NewScreenSession(ScreenConfig) (Session, error) {
	return nil, ErrNotSupported
}

// ListMonitors is not available on this platform.
func ListMonitors() ([]MonitorInfo, error) {
	return nil, ErrNotSupported
}

// ListVideoDevices is not available on this platform.
func ListVideoDevices() ([]VideoDeviceInfo, error) {
	return nil, ErrNotSupported
}

// ActivateVideoDevice is not available on this platform.
func ActivateVideoDevice(int, OutputFormat) (Session, error) {
	return nil, ErrNotSupported
}
