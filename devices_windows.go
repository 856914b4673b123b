//go:build windows

package capture

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Video capture device enumeration and activation via
// MFEnumDeviceSources. Activation hands the resulting media source to
// a DeviceSession.

// enumVideoActivates returns the platform-allocated IMFActivate array.
// The caller releases every element and frees the array with
// coTaskMemFree.
func enumVideoActivates() (array uintptr, count uint32, err error) {
	if err := ensureMediaFoundation(); err != nil {
		return 0, 0, err
	}

	var attrs uintptr
	hr, _, _ := procMFCreateAttributes.Call(uintptr(unsafe.Pointer(&attrs)), 1)
	if int32(hr) < 0 {
		return 0, 0, fmt.Errorf("MFCreateAttributes failed: 0x%08X", uint32(hr))
	}
	defer comRelease(attrs)

	if _, err := comCall(attrs, vtblSetGUID,
		uintptr(unsafe.Pointer(&mfDevsourceAttributeSourceType)),
		uintptr(unsafe.Pointer(&mfDevsourceAttributeVidcapGUID))); err != nil {
		return 0, 0, fmt.Errorf("set device source type: %w", err)
	}

	hr, _, _ = procMFEnumDeviceSources.Call(
		attrs,
		uintptr(unsafe.Pointer(&array)),
		uintptr(unsafe.Pointer(&count)),
	)
	if int32(hr) < 0 {
		return 0, 0, fmt.Errorf("MFEnumDeviceSources failed: 0x%08X", uint32(hr))
	}
	return array, count, nil
}

// deviceFriendlyName reads the human-readable name off an IMFActivate.
func deviceFriendlyName(activate uintptr) (string, error) {
	var (
		pwstr   uintptr
		nameLen uint32
	)
	if _, err := comCall(activate, vtblGetAllocatedString,
		uintptr(unsafe.Pointer(&mfDevsourceAttributeFriendlyName)),
		uintptr(unsafe.Pointer(&pwstr)),
		uintptr(unsafe.Pointer(&nameLen))); err != nil {
		return "", err
	}
	defer coTaskMemFree(pwstr)
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(pwstr))), nil
}

// ListVideoDevices enumerates the attached video capture devices.
func ListVideoDevices() ([]VideoDeviceInfo, error) {
	array, count, err := enumVideoActivates()
	if err != nil {
		return nil, err
	}
	defer coTaskMemFree(array)

	if count == 0 {
		return nil, nil
	}
	activates := unsafe.Slice((*uintptr)(unsafe.Pointer(array)), count)

	devices := make([]VideoDeviceInfo, 0, count)
	for i, activate := range activates {
		name, err := deviceFriendlyName(activate)
		if err != nil {
			name = fmt.Sprintf("video device %d", i)
		}
		devices = append(devices, VideoDeviceInfo{Index: i, Name: name})
		comRelease(activate)
	}
	return devices, nil
}

// ActivateVideoDevice turns the enumerated device at index into a live
// capture session with the requested output format.
func ActivateVideoDevice(index int, format OutputFormat) (Session, error) {
	array, count, err := enumVideoActivates()
	if err != nil {
		return nil, err
	}
	defer coTaskMemFree(array)

	activates := unsafe.Slice((*uintptr)(unsafe.Pointer(array)), count)
	defer func() {
		for _, activate := range activates {
			comRelease(activate)
		}
	}()

	if index < 0 || index >= int(count) {
		return nil, fmt.Errorf("video device index %d out of range (%d devices)", index, count)
	}
	activate := activates[index]

	name, err := deviceFriendlyName(activate)
	if err != nil {
		name = fmt.Sprintf("video device %d", index)
	}

	var source uintptr
	if _, err := comCall(activate, vtblActivateObject,
		uintptr(unsafe.Pointer(&iidIMFMediaSource)),
		uintptr(unsafe.Pointer(&source))); err != nil {
		return nil, fmt.Errorf("activate %q: %w", name, err)
	}

	return newDeviceSession(name, source, format)
}
