//go:build windows

package capture

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// COM vtable calling infrastructure. Everything goes through plain
// syscalls against vtable slots, no CGO.

// comGUID is a COM GUID (128-bit).
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

const vtblQueryInterface = 0 // IUnknown::QueryInterface

// comVtblFn resolves a COM vtable function pointer by index.
// obj is a pointer to a COM interface (pointer to pointer to vtable).
func comVtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// comCall invokes a COM vtable method at the given index.
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, vtableIdx), allArgs...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comRelease calls IUnknown::Release (vtable index 2).
func comRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(comVtblFn(obj, 2), obj)
	}
}

// --- DLL procs ---

var (
	ole32DLL       = windows.NewLazySystemDLL("ole32.dll")
	mfplatDLL      = windows.NewLazySystemDLL("mfplat.dll")
	mfDLL          = windows.NewLazySystemDLL("mf.dll")
	mfreadwriteDLL = windows.NewLazySystemDLL("mfreadwrite.dll")

	procCoInitializeEx = ole32DLL.NewProc("CoInitializeEx")
	procCoTaskMemFree  = ole32DLL.NewProc("CoTaskMemFree")

	procMFStartup          = mfplatDLL.NewProc("MFStartup")
	procMFCreateAttributes = mfplatDLL.NewProc("MFCreateAttributes")
	procMFCreateMediaType  = mfplatDLL.NewProc("MFCreateMediaType")

	procMFEnumDeviceSources = mfDLL.NewProc("MFEnumDeviceSources")

	procMFCreateSourceReaderFromMediaSource = mfreadwriteDLL.NewProc("MFCreateSourceReaderFromMediaSource")
)

const (
	coinitMultithreaded = 0x0
	rpcEChangedMode     = 0x80010106

	mfVersion     = 0x00020070 // MF_VERSION (Windows 7+)
	mfStartupFull = 0
)

var mfOnce struct {
	sync.Once
	err error
}

// ensureMediaFoundation initializes COM and Media Foundation once per
// process. Never shut down: source readers and device activations may
// outlive any one session.
func ensureMediaFoundation() error {
	mfOnce.Do(func() {
		hr, _, _ := procCoInitializeEx.Call(0, coinitMultithreaded)
		if int32(hr) < 0 && uint32(hr) != rpcEChangedMode {
			mfOnce.err = fmt.Errorf("CoInitializeEx failed: 0x%08X", uint32(hr))
			return
		}
		hr, _, _ = procMFStartup.Call(mfVersion, mfStartupFull)
		if int32(hr) < 0 {
			mfOnce.err = fmt.Errorf("MFStartup failed: 0x%08X", uint32(hr))
		}
	})
	return mfOnce.err
}

// coTaskMemFree frees memory the platform allocated on our behalf.
func coTaskMemFree(p uintptr) {
	if p != 0 {
		procCoTaskMemFree.Call(p)
	}
}
