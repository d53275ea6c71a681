package netio

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Wire frame bounds (§4.1): header is always 8 bytes, payload is
// [MinFrameSize-8, MaxFrameSize-8] bytes.
const (
	HeaderSize    = 8
	MinFrameSize  = 12
	MaxFrameSize  = 4096
)

// Header is the 8-byte frame header: {size, type, clientId, checksum},
// all little-endian. Size is the total frame size including the header.
type Header struct {
	Size     uint16
	Type     uint16
	ClientID uint16
	Checksum uint16
}

// Checksum computes the CRC32 integrity check over the post-header bytes
// (the wire payload, as transmitted — i.e. still encrypted on the wire).
// This is validation pipeline step 2 (§4.1); it runs before decryption so a
// corrupted frame is rejected without ever touching the cipher state.
func Checksum(payload []byte) uint16 {
	sum := crc32.ChecksumIEEE(payload)
	return uint16(sum ^ (sum >> 16))
}

// ReadFrame reads one frame from r and returns its header and raw
// (still-encrypted) payload. It validates the [MIN,MAX] size bounds only;
// the checksum (computed over this raw payload, see Checksum) is checked
// by the caller, and no per-type size check is made here.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, nil, fmt.Errorf("read frame header: %w", err)
	}
	h := Header{
		Size:     binary.LittleEndian.Uint16(raw[0:2]),
		Type:     binary.LittleEndian.Uint16(raw[2:4]),
		ClientID: binary.LittleEndian.Uint16(raw[4:6]),
		Checksum: binary.LittleEndian.Uint16(raw[6:8]),
	}
	if int(h.Size) < MinFrameSize || int(h.Size) > MaxFrameSize {
		return Header{}, nil, &InvalidPacketError{Reason: fmt.Sprintf("frame size %d out of [%d,%d]", h.Size, MinFrameSize, MaxFrameSize)}
	}

	payloadLen := int(h.Size) - HeaderSize
	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Header{}, nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
		}
	}
	return h, payload, nil
}

// WriteFrame writes one frame to w: header followed by payload. Callers
// pass the already-encrypted payload; WriteFrame fills in Size and
// computes Checksum over that payload itself.
func WriteFrame(w io.Writer, h Header, payload []byte) error {
	h.Size = uint16(HeaderSize + len(payload))
	h.Checksum = Checksum(payload)

	var raw [HeaderSize]byte
	binary.LittleEndian.PutUint16(raw[0:2], h.Size)
	binary.LittleEndian.PutUint16(raw[2:4], h.Type)
	binary.LittleEndian.PutUint16(raw[4:6], h.ClientID)
	binary.LittleEndian.PutUint16(raw[6:8], h.Checksum)

	if _, err := w.Write(raw[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// InvalidPacketError corresponds to §7 ProtocolError: malformed frame.
type InvalidPacketError struct {
	Reason string
}

func (e *InvalidPacketError) Error() string { return "invalid packet: " + e.Reason }
