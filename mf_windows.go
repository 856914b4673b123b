//go:build windows

package capture

// Media Foundation declarations for the source-reader capture path.

const (
	// Pseudo stream indices for IMFSourceReader.
	mfSourceReaderFirstVideoStream = 0xFFFFFFFC
	mfSourceReaderAllStreams       = 0xFFFFFFFE

	// MF_SOURCE_READERF stream flags returned by ReadSample.
	mfSourceReaderFError       = 0x1
	mfSourceReaderFEndOfStream = 0x2
	mfSourceReaderFStreamTick  = 0x100
)

// --- GUIDs ---

var (
	mfMediaTypeVideo   = comGUID{0x73646976, 0x0000, 0x0010, [8]byte{0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}}
	mfVideoFormatNV12  = comGUID{0x3231564E, 0x0000, 0x0010, [8]byte{0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}}
	mfVideoFormatRGB32 = comGUID{0x00000016, 0x0000, 0x0010, [8]byte{0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}}

	mfMTMajorType = comGUID{0x48eba18e, 0xf8c9, 0x4687, [8]byte{0xbf, 0x11, 0x0a, 0x74, 0xc9, 0xf9, 0x6a, 0x8f}}
	mfMTSubtype   = comGUID{0xf7e34c9a, 0x42e8, 0x4714, [8]byte{0xb7, 0x4b, 0xcb, 0x29, 0xd7, 0x2c, 0x35, 0xe5}}
	mfMTFrameSize = comGUID{0x1652c33d, 0xd6b2, 0x4012, [8]byte{0xb8, 0x34, 0x72, 0x03, 0x08, 0x49, 0xa3, 0x7d}}

	mfDevsourceAttributeSourceType   = comGUID{0xc60ac5fe, 0x252a, 0x478f, [8]byte{0xa0, 0xef, 0xbc, 0x8f, 0xa5, 0xf7, 0xca, 0xd3}}
	mfDevsourceAttributeVidcapGUID   = comGUID{0x8ac3587a, 0x4ae7, 0x42d8, [8]byte{0x99, 0xe0, 0x0a, 0x60, 0x13, 0xee, 0xf9, 0x0f}}
	mfDevsourceAttributeFriendlyName = comGUID{0x60d0e559, 0x52f8, 0x4fa2, [8]byte{0xbb, 0xce, 0xac, 0xdb, 0x34, 0xa8, 0xec, 0x01}}

	mfSourceReaderEnableVideoProcessing = comGUID{0xfb394f3d, 0xccf1, 0x42ee, [8]byte{0xbb, 0xb3, 0xf9, 0xb8, 0x45, 0xd5, 0x68, 0x1d}}
	mfReadwriteEnableHardwareTransforms = comGUID{0xa634a91c, 0x822b, 0x41b9, [8]byte{0xa4, 0x94, 0x4d, 0xe4, 0x64, 0x36, 0x12, 0xb0}}

	iidIMFMediaSource = comGUID{0x279a808d, 0xaec7, 0x40c8, [8]byte{0x9c, 0x6b, 0xa6, 0xb4, 0x92, 0xc7, 0x8a, 0x66}}
)

// --- vtable index constants ---
//
// Fixed by the COM ABI and must be exact.
// IUnknown:        0=QueryInterface, 1=AddRef, 2=Release
// IMFAttributes:   starts at 3 (30 methods)
// IMFMediaType / IMFSample / IMFActivate extend IMFAttributes (base 33)
// IMFMediaBuffer:  starts at 3 (5 methods)
// IMFMediaSource:  extends IMFMediaEventGenerator (4 methods at 3)
// IMFSourceReader: starts at 3 (10 methods)

const (
	// IMFAttributes (base 3 + method index)
	vtblGetUINT64          = 8  // 3 + 5
	vtblGetAllocatedString = 13 // 3 + 10
	vtblSetUINT32          = 21 // 3 + 18
	vtblSetGUID            = 24 // 3 + 21

	// IMFActivate (extends IMFAttributes)
	vtblActivateObject = 33 // 33 + 0

	// IMFSourceReader
	vtblReaderSetStreamSelection   = 4 // 3 + 1
	vtblReaderGetCurrentMediaType  = 6 // 3 + 3
	vtblReaderSetCurrentMediaType  = 7 // 3 + 4
	vtblReaderReadSample           = 9 // 3 + 6

	// IMFSample (extends IMFAttributes)
	vtblConvertToContiguous = 41 // 33 + 8

	// IMFMediaBuffer
	vtblBufLock   = 3
	vtblBufUnlock = 4

	// IMFMediaSource (extends IMFMediaEventGenerator)
	vtblSourceShutdown = 12 // 7 + 5
)

// unpackFrameSize splits the packed MF_MT_FRAME_SIZE attribute
// (width in the high word, height in the low word).
func unpackFrameSize(packed uint64) (width, height uint32) {
	return uint32(packed >> 32), uint32(packed & 0xFFFFFFFF)
}
