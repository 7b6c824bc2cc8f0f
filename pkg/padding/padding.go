// Package padding implements the fixed-length frame codec used to mask
// plaintext-size fingerprints before a payload is encrypted. A frame is
// always produced and consumed inside the ciphertext; it never appears on
// the wire by itself.
package padding

import (
	"encoding/binary"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
)

// tag is the fixed 4-byte literal marking a valid frame.
var tag = [4]byte{'Z', 'K', 'L', 'G'}

// headerSize is the tag plus the little-endian uint32 length prefix.
const headerSize = 4 + 4

// filler is the repeating two-byte pattern used to pad out a frame to its
// target length.
var filler = [2]byte{' ', '\n'}

// Pad frames payload into a buffer of exactly target bytes: the 4-byte tag,
// a little-endian uint32 payload length, the payload itself, and repeating
// filler bytes up to target.
//
// Pad fails with InvalidPadding if target is smaller than the 8-byte header,
// and with PayloadTooLargeError if payload does not fit in target-8 bytes.
func Pad(payload []byte, target int) ([]byte, error) {
	if target < headerSize {
		return nil, gwerrs.InvalidPadding("target smaller than frame header")
	}

	limit := target - headerSize
	if len(payload) > limit {
		return nil, gwerrs.NewPayloadTooLarge(len(payload), limit)
	}

	frame := make([]byte, target)
	copy(frame[0:4], tag[:])
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[headerSize:], payload)

	for i := headerSize + len(payload); i < target; i++ {
		frame[i] = filler[(i-headerSize-len(payload))%2]
	}

	return frame, nil
}

// Unpad reverses Pad, returning the exact payload slice declared in the
// frame header. It fails with InvalidPadding on a short buffer, a wrong
// tag, or a declared length exceeding len(frame)-8.
func Unpad(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, gwerrs.InvalidPadding("frame shorter than header")
	}

	var gotTag [4]byte
	copy(gotTag[:], frame[0:4])
	if gotTag != tag {
		return nil, gwerrs.InvalidPadding("bad tag")
	}

	length := binary.LittleEndian.Uint32(frame[4:8])
	limit := len(frame) - headerSize
	if int(length) > limit {
		return nil, gwerrs.InvalidPadding("declared length exceeds frame capacity")
	}

	payload := make([]byte, length)
	copy(payload, frame[headerSize:headerSize+int(length)])
	return payload, nil
}
