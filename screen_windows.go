//go:build windows

package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

// ScreenSession mirrors one display output through DXGI Desktop
// Duplication. Frames are BGRA, row-major, rowPitch*height bytes; the
// pitch may exceed width*4 due to GPU alignment, so callers wanting
// packed rows must re-stride using Stride().
type ScreenSession struct {
	sessionBase

	// mu serializes native access: the producer loop, Close and the
	// Stride accessor.
	mu sync.Mutex

	// D3D11/DXGI COM objects, exclusively owned by the session.
	device      uintptr // ID3D11Device
	context     uintptr // ID3D11DeviceContext
	duplication uintptr // IDXGIOutputDuplication
	staging     uintptr // ID3D11Texture2D, CPU-readable, allocated once

	dims       Dimensions
	timeout    time.Duration
	lastStride uint32

	// True while an AcquireNextFrame is unreleased.
	frameAcquired bool
	closed        bool

	metaMu sync.Mutex
	meta   ChangeMetadata
}

// NewScreenSession duplicates the display output selected by
// cfg.DisplayIndex. The staging texture is sized to the output's
// dimensions at construction and never resized; construction fails if
// the duplication cannot report them.
func NewScreenSession(cfg ScreenConfig) (Session, error) {
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	s := &ScreenSession{
		sessionBase: newSessionBase(),
		timeout:     cfg.AcquireTimeout,
	}
	if err := s.initDuplication(cfg.DisplayIndex); err != nil {
		return nil, err
	}
	slog.Info("desktop duplication initialized",
		"display", cfg.DisplayIndex,
		"width", s.dims.Width, "height", s.dims.Height)
	return s, nil
}

func (s *ScreenSession) initDuplication(displayIndex int) error {
	// D3D11CreateDevice with BGRA support, required for duplication.
	var device, context uintptr
	featureLevel := uint32(d3dFeatureLevel11_0)
	var actualLevel uint32

	hr, _, _ := procD3D11CreateDevice.Call(
		0, // pAdapter (NULL = default)
		uintptr(d3dDriverTypeHardware),
		0, // Software
		uintptr(d3d11CreateDeviceBGRASupport),
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if int32(hr) < 0 {
		return fmt.Errorf("D3D11CreateDevice failed: 0x%08X", uint32(hr))
	}

	// QueryInterface → IDXGIDevice
	var dxgiDevice uintptr
	_, err := comCall(device, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)),
		uintptr(unsafe.Pointer(&dxgiDevice)),
	)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	// GetAdapter
	var adapter uintptr
	_, err = comCall(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comRelease(adapter)

	// EnumOutputs
	var output uintptr
	_, err = comCall(adapter, dxgiAdapterEnumOutputs,
		uintptr(displayIndex),
		uintptr(unsafe.Pointer(&output)),
	)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("IDXGIAdapter::EnumOutputs(%d): %w", displayIndex, err)
	}

	// QueryInterface → IDXGIOutput1
	var output1 uintptr
	_, err = comCall(output, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIOutput1)),
		uintptr(unsafe.Pointer(&output1)),
	)
	comRelease(output)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
	}
	defer comRelease(output1)

	// DuplicateOutput
	var duplication uintptr
	_, err = comCall(output1, dxgiOutput1DuplicateOutput,
		device,
		uintptr(unsafe.Pointer(&duplication)),
	)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("IDXGIOutput1::DuplicateOutput: %w", err)
	}

	// Dimensions come from the duplication's own desc. Probing with
	// AcquireNextFrame can time out on an idle desktop, and system
	// metrics are wrong for non-primary displays.
	var duplDesc dxgiOutDuplDesc
	hrDesc, _, _ := syscall.SyscallN(
		comVtblFn(duplication, dxgiDuplGetDesc),
		duplication,
		uintptr(unsafe.Pointer(&duplDesc)),
	)
	if int32(hrDesc) < 0 {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("IDXGIOutputDuplication::GetDesc failed: 0x%08X", uint32(hrDesc))
	}
	width := duplDesc.ModeDesc.Width
	height := duplDesc.ModeDesc.Height
	if width == 0 || height == 0 {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("duplication reported %dx%d: %w", width, height, ErrDimensionsUnavailable)
	}

	// One persistent staging texture, reused for every frame.
	stagingDesc := d3d11Texture2DDesc{
		Width:          width,
		Height:         height,
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		SampleQuality:  0,
		Usage:          d3d11UsageStaging,
		BindFlags:      0,
		CPUAccessFlags: d3d11CPUAccessRead,
		MiscFlags:      0,
	}
	var staging uintptr
	_, err = comCall(device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&stagingDesc)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&staging)),
	)
	if err != nil {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return fmt.Errorf("CreateTexture2D staging: %w", err)
	}

	s.device = device
	s.context = context
	s.duplication = duplication
	s.staging = staging
	s.dims = Dimensions{Width: width, Height: height}
	return nil
}

// Start runs the duplication loop until Stop or a fatal error.
func (s *ScreenSession) Start() error { return s.run(s) }

// Dimensions reports the duplicated output's fixed frame size.
func (s *ScreenSession) Dimensions() (Dimensions, error) {
	if s.dims.Width == 0 || s.dims.Height == 0 {
		return Dimensions{}, ErrDimensionsUnavailable
	}
	return s.dims, nil
}

// Stride returns the row pitch in bytes of the most recent frame,
// zero before the first frame. May exceed Width*4.
func (s *ScreenSession) Stride() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStride
}

// Metadata returns a snapshot of the latest frame's moved/dirty
// regions. The lock is held only for the clone.
func (s *ScreenSession) Metadata() ChangeMetadata {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	return s.meta.Clone()
}

// acquireFrame implements frameSource: acquire → metadata → copy to
// staging → map → extract → unmap. The duplication frame stays
// acquired until releaseFrame.
func (s *ScreenSession) acquireFrame() ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrSessionClosed
	}
	if s.frameAcquired {
		// Caller misuse: the previous frame was never released.
		return nil, false, acquisitionError("AcquireNextFrame", fmt.Errorf("previous frame not released"))
	}

	var frameInfo dxgiOutDuplFrameInfo
	var resource uintptr
	hr, _, _ := syscall.SyscallN(
		comVtblFn(s.duplication, dxgiDuplAcquireNextFrame),
		s.duplication,
		uintptr(s.timeout.Milliseconds()),
		uintptr(unsafe.Pointer(&frameInfo)),
		uintptr(unsafe.Pointer(&resource)),
	)
	if uint32(hr) == dxgiErrWaitTimeout {
		// No desktop update within the window. Transient.
		return nil, false, nil
	}
	if int32(hr) < 0 {
		return nil, false, hresultError("AcquireNextFrame", hr)
	}
	s.frameAcquired = true

	// QueryInterface → ID3D11Texture2D
	var texture uintptr
	_, err := comCall(resource, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&texture)),
	)
	comRelease(resource)
	if err != nil {
		return nil, false, acquisitionError("QueryInterface ID3D11Texture2D", err)
	}

	if err := s.collectMetadata(&frameInfo); err != nil {
		comRelease(texture)
		return nil, false, err
	}

	// GPU-to-GPU copy into the staging texture, then flush so the
	// copy is complete before mapping.
	syscall.SyscallN(comVtblFn(s.context, d3d11CtxCopyResource), s.context, s.staging, texture)
	comRelease(texture)
	syscall.SyscallN(comVtblFn(s.context, d3d11CtxFlush), s.context)

	var mapped d3d11MappedSubresource
	hr, _, _ = syscall.SyscallN(
		comVtblFn(s.context, d3d11CtxMap),
		s.context,
		s.staging,
		0, // Subresource
		uintptr(d3d11MapRead),
		0, // Flags
		uintptr(unsafe.Pointer(&mapped)),
	)
	if int32(hr) < 0 {
		return nil, false, hresultError("Map staging texture", hr)
	}

	rowPitch := int(mapped.RowPitch)
	total := rowPitch * int(s.dims.Height)
	frame, copyErr := copyRegion(unsafe.Pointer(mapped.PData), total, int(mapped.DepthPitch))

	syscall.SyscallN(comVtblFn(s.context, d3d11CtxUnmap), s.context, s.staging, 0)

	if copyErr != nil {
		return nil, false, acquisitionError("extract staging bytes", copyErr)
	}
	s.lastStride = mapped.RowPitch
	return frame, true, nil
}

// collectMetadata grows the region buffers to the required size and
// queries this frame's moved and dirty rects.
func (s *ScreenSession) collectMetadata(info *dxgiOutDuplFrameInfo) error {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()

	if info.TotalMetadataBufferSize == 0 {
		// Mouse-only or no-change update: no region metadata.
		s.meta.SetCounts(0, 0)
		return nil
	}
	s.meta.EnsureCapacity(info.TotalMetadataBufferSize)

	var moveBytes uint32
	moveBufBytes := uint32(len(s.meta.MoveRects)) * uint32(unsafe.Sizeof(MoveRect{}))
	hr, _, _ := syscall.SyscallN(
		comVtblFn(s.duplication, dxgiDuplGetFrameMoveRects),
		s.duplication,
		uintptr(moveBufBytes),
		uintptr(unsafe.Pointer(&s.meta.MoveRects[0])),
		uintptr(unsafe.Pointer(&moveBytes)),
	)
	if int32(hr) < 0 {
		return hresultError("GetFrameMoveRects", hr)
	}

	var dirtyBytes uint32
	dirtyBufBytes := uint32(len(s.meta.DirtyRects)) * uint32(unsafe.Sizeof(Rect{}))
	hr, _, _ = syscall.SyscallN(
		comVtblFn(s.duplication, dxgiDuplGetFrameDirtyRects),
		s.duplication,
		uintptr(dirtyBufBytes),
		uintptr(unsafe.Pointer(&s.meta.DirtyRects[0])),
		uintptr(unsafe.Pointer(&dirtyBytes)),
	)
	if int32(hr) < 0 {
		return hresultError("GetFrameDirtyRects", hr)
	}

	moved := moveBytes / uint32(unsafe.Sizeof(MoveRect{}))
	dirty := dirtyBytes / uint32(unsafe.Sizeof(Rect{}))
	if !s.meta.SetCounts(moved, dirty) {
		slog.Warn("change metadata counts exceed capacity, clamped",
			"moved", moved, "dirty", dirty, "capacity", s.meta.Capacity())
	}
	return nil
}

// releaseFrame implements frameSource. Idempotent: safe after a fatal
// acquisition error or a teardown that already released the frame.
func (s *ScreenSession) releaseFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.frameAcquired {
		return nil
	}
	s.frameAcquired = false
	if s.duplication == 0 {
		return nil
	}
	hr, _, _ := syscall.SyscallN(comVtblFn(s.duplication, dxgiDuplReleaseFrame), s.duplication)
	if int32(hr) < 0 {
		return hresultError("ReleaseFrame", hr)
	}
	return nil
}

// Close stops any running loop, releases all DXGI resources and closes
// the frame channel.
func (s *ScreenSession) Close() error {
	_ = s.guard.TryStop() // ask a running loop to exit

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	// Never leave an acquired frame hanging.
	if s.frameAcquired && s.duplication != 0 {
		syscall.SyscallN(comVtblFn(s.duplication, dxgiDuplReleaseFrame), s.duplication)
	}
	s.frameAcquired = false

	if s.staging != 0 {
		comRelease(s.staging)
		s.staging = 0
	}
	if s.duplication != 0 {
		comRelease(s.duplication)
		s.duplication = 0
	}
	if s.context != 0 {
		comRelease(s.context)
		s.context = 0
	}
	if s.device != 0 {
		comRelease(s.device)
		s.device = 0
	}

	s.frames.Close()
	return nil
}

var (
	_ Session          = (*ScreenSession)(nil)
	_ MetadataProvider = (*ScreenSession)(nil)
	_ frameSource      = (*ScreenSession)(nil)
)
