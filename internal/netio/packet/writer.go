package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/traditionalchinese"
)

// Writer builds a TMSrv packet payload. All multi-byte writes are
// little-endian. The payload excludes the 8-byte wire header (§4.1);
// the session's write loop prepends {size, type, clientId, checksum} when
// framing.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteD writes 4 bytes little-endian (signed or unsigned via cast).
func (w *Writer) WriteD(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteS writes a null-terminated string, converting UTF-8 to MS950 (Big5).
func (w *Writer) WriteS(s string) {
	if len(s) == 0 {
		w.buf = append(w.buf, 0)
		return
	}
	encoded, err := traditionalchinese.Big5.NewEncoder().Bytes([]byte(s))
	if err != nil {
		w.buf = append(w.buf, []byte(s)...)
	} else {
		w.buf = append(w.buf, encoded...)
	}
	w.buf = append(w.buf, 0)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the packet payload built so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current payload length.
func (w *Writer) Len() int {
	return len(w.buf)
}
