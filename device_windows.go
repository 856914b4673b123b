//go:build windows

package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"unsafe"
)

// DeviceSession captures frames from one activated video device (a
// webcam or other Media Foundation video source) through an
// IMFSourceReader. Frames are the raw sample bytes in the negotiated
// pixel format: NV12 for FormatRaw, RGB32 for FormatConverted.
type DeviceSession struct {
	sessionBase

	mu sync.Mutex

	reader uintptr // IMFSourceReader
	source uintptr // IMFMediaSource

	name   string
	format OutputFormat
	closed bool
}

// newDeviceSession wraps an activated media source in a source reader
// with video processing and hardware transforms enabled, selects the
// first video stream and negotiates the output format.
func newDeviceSession(name string, source uintptr, format OutputFormat) (*DeviceSession, error) {
	reader, err := createSourceReader(source)
	if err != nil {
		comRelease(source)
		return nil, err
	}
	s := &DeviceSession{
		sessionBase: newSessionBase(),
		reader:      reader,
		source:      source,
		name:        name,
		format:      format,
	}
	if err := s.selectVideoStream(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.setOutputFormat(); err != nil {
		s.Close()
		return nil, err
	}
	slog.Info("video device activated", "device", name, "format", format.String())
	return s, nil
}

func createSourceReader(source uintptr) (uintptr, error) {
	var attrs uintptr
	hr, _, _ := procMFCreateAttributes.Call(uintptr(unsafe.Pointer(&attrs)), 2)
	if int32(hr) < 0 {
		return 0, fmt.Errorf("MFCreateAttributes failed: 0x%08X", uint32(hr))
	}
	defer comRelease(attrs)

	if _, err := comCall(attrs, vtblSetUINT32,
		uintptr(unsafe.Pointer(&mfSourceReaderEnableVideoProcessing)), 1); err != nil {
		return 0, fmt.Errorf("enable video processing: %w", err)
	}
	if _, err := comCall(attrs, vtblSetUINT32,
		uintptr(unsafe.Pointer(&mfReadwriteEnableHardwareTransforms)), 1); err != nil {
		return 0, fmt.Errorf("enable hardware transforms: %w", err)
	}

	var reader uintptr
	hr, _, _ = procMFCreateSourceReaderFromMediaSource.Call(
		source,
		attrs,
		uintptr(unsafe.Pointer(&reader)),
	)
	if int32(hr) < 0 {
		return 0, fmt.Errorf("MFCreateSourceReaderFromMediaSource failed: 0x%08X", uint32(hr))
	}
	return reader, nil
}

// selectVideoStream deselects everything, then enables only the first
// video stream.
func (s *DeviceSession) selectVideoStream() error {
	if _, err := comCall(s.reader, vtblReaderSetStreamSelection,
		uintptr(mfSourceReaderAllStreams), 0); err != nil {
		return fmt.Errorf("deselect streams: %w", err)
	}
	if _, err := comCall(s.reader, vtblReaderSetStreamSelection,
		uintptr(mfSourceReaderFirstVideoStream), 1); err != nil {
		return fmt.Errorf("select first video stream: %w", err)
	}
	return nil
}

func (s *DeviceSession) setOutputFormat() error {
	var mediaType uintptr
	hr, _, _ := procMFCreateMediaType.Call(uintptr(unsafe.Pointer(&mediaType)))
	if int32(hr) < 0 {
		return fmt.Errorf("MFCreateMediaType failed: 0x%08X", uint32(hr))
	}
	defer comRelease(mediaType)

	if _, err := comCall(mediaType, vtblSetGUID,
		uintptr(unsafe.Pointer(&mfMTMajorType)),
		uintptr(unsafe.Pointer(&mfMediaTypeVideo))); err != nil {
		return fmt.Errorf("set major type: %w", err)
	}
	subtype := &mfVideoFormatNV12
	if s.format == FormatConverted {
		subtype = &mfVideoFormatRGB32
	}
	if _, err := comCall(mediaType, vtblSetGUID,
		uintptr(unsafe.Pointer(&mfMTSubtype)),
		uintptr(unsafe.Pointer(subtype))); err != nil {
		return fmt.Errorf("set subtype: %w", err)
	}
	if _, err := comCall(s.reader, vtblReaderSetCurrentMediaType,
		uintptr(mfSourceReaderFirstVideoStream),
		0, // pdwReserved
		mediaType); err != nil {
		return fmt.Errorf("SetCurrentMediaType: %w", err)
	}
	return nil
}

// Name returns the device's friendly name.
func (s *DeviceSession) Name() string { return s.name }

// Format returns the negotiated output format.
func (s *DeviceSession) Format() OutputFormat { return s.format }

// Start runs the sample-reading loop until Stop or a fatal error.
func (s *DeviceSession) Start() error { return s.run(s) }

// Dimensions queries the negotiated frame size from the current media
// type of the first video stream.
func (s *DeviceSession) Dimensions() (Dimensions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Dimensions{}, ErrSessionClosed
	}

	var mediaType uintptr
	if _, err := comCall(s.reader, vtblReaderGetCurrentMediaType,
		uintptr(mfSourceReaderFirstVideoStream),
		uintptr(unsafe.Pointer(&mediaType))); err != nil {
		return Dimensions{}, fmt.Errorf("%w: GetCurrentMediaType: %v", ErrDimensionsUnavailable, err)
	}
	defer comRelease(mediaType)

	var packed uint64
	if _, err := comCall(mediaType, vtblGetUINT64,
		uintptr(unsafe.Pointer(&mfMTFrameSize)),
		uintptr(unsafe.Pointer(&packed))); err != nil {
		return Dimensions{}, fmt.Errorf("%w: MF_MT_FRAME_SIZE: %v", ErrDimensionsUnavailable, err)
	}
	width, height := unpackFrameSize(packed)
	if width == 0 || height == 0 {
		return Dimensions{}, ErrDimensionsUnavailable
	}
	return Dimensions{Width: width, Height: height}, nil
}

// acquireFrame implements frameSource: read one sample from the first
// video stream and copy its contiguous buffer out. The sample and
// buffer are released before returning, so releaseFrame has nothing
// left to do.
func (s *DeviceSession) acquireFrame() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrSessionClosed
	}

	var (
		streamIndex uint32
		streamFlags uint32
		timestamp   int64
		sample      uintptr
	)
	hr, _, _ := syscall.SyscallN(
		comVtblFn(s.reader, vtblReaderReadSample),
		s.reader,
		uintptr(mfSourceReaderFirstVideoStream),
		0, // dwControlFlags
		uintptr(unsafe.Pointer(&streamIndex)),
		uintptr(unsafe.Pointer(&streamFlags)),
		uintptr(unsafe.Pointer(&timestamp)),
		uintptr(unsafe.Pointer(&sample)),
	)
	if int32(hr) < 0 {
		return nil, false, hresultError("ReadSample", hr)
	}
	if streamFlags&mfSourceReaderFEndOfStream != 0 {
		comRelease(sample)
		return nil, false, acquisitionError("ReadSample", fmt.Errorf("end of stream"))
	}
	if sample == 0 {
		// Gap or stream tick: no sample this iteration. Transient.
		return nil, false, nil
	}
	defer comRelease(sample)

	var buffer uintptr
	if _, err := comCall(sample, vtblConvertToContiguous,
		uintptr(unsafe.Pointer(&buffer))); err != nil {
		return nil, false, acquisitionError("ConvertToContiguousBuffer", err)
	}
	defer comRelease(buffer)

	var (
		bufPtr     uintptr
		maxLength  uint32
		curLength  uint32
	)
	if _, err := comCall(buffer, vtblBufLock,
		uintptr(unsafe.Pointer(&bufPtr)),
		uintptr(unsafe.Pointer(&maxLength)),
		uintptr(unsafe.Pointer(&curLength))); err != nil {
		return nil, false, acquisitionError("IMFMediaBuffer::Lock", err)
	}

	frame, copyErr := copyRegion(unsafe.Pointer(bufPtr), int(curLength), int(maxLength))

	comCall(buffer, vtblBufUnlock)

	if copyErr != nil {
		return nil, false, acquisitionError("extract sample bytes", copyErr)
	}
	return frame, true, nil
}

// releaseFrame implements frameSource. Device samples never outlive an
// acquisition, so this is a no-op kept for the shared loop contract.
func (s *DeviceSession) releaseFrame() error { return nil }

// Close stops any running loop, shuts the media source down and closes
// the frame channel.
func (s *DeviceSession) Close() error {
	_ = s.guard.TryStop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.reader != 0 {
		comRelease(s.reader)
		s.reader = 0
	}
	if s.source != 0 {
		// Best-effort: readers do not shut their source down.
		comCall(s.source, vtblSourceShutdown)
		comRelease(s.source)
		s.source = 0
	}

	s.frames.Close()
	return nil
}

var (
	_ Session     = (*DeviceSession)(nil)
	_ frameSource = (*DeviceSession)(nil)
)
