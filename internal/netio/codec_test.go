package netio

import (
	"bytes"
	"testing"
)

func TestWriteFrameThenReadFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		payload []byte
	}{
		{name: "minimum payload", header: Header{Type: 7, ClientID: 3}, payload: make([]byte, MinFrameSize-HeaderSize)},
		{name: "small payload", header: Header{Type: 42, ClientID: 99}, payload: []byte{1, 2, 3, 4}},
		{name: "payload near max", header: Header{Type: 5, ClientID: 1}, payload: bytes.Repeat([]byte{0xab}, MaxFrameSize-HeaderSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.header, tt.payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}

			gotHeader, gotPayload, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if gotHeader.Type != tt.header.Type || gotHeader.ClientID != tt.header.ClientID {
				t.Fatalf("header mismatch: got %+v", gotHeader)
			}
			if len(gotPayload) != len(tt.payload) {
				t.Fatalf("payload length mismatch: got %d want %d", len(gotPayload), len(tt.payload))
			}
			if gotHeader.Checksum != Checksum(tt.payload) {
				t.Fatalf("checksum mismatch: got %d want %d", gotHeader.Checksum, Checksum(tt.payload))
			}
		})
	}
}

func TestReadFrameRejectsOutOfBoundsSize(t *testing.T) {
	var buf bytes.Buffer
	// Hand-craft a header claiming an undersized frame.
	raw := []byte{4, 0, 1, 0, 0, 0, 0, 0}
	buf.Write(raw)

	if _, _, err := ReadFrame(&buf); err == nil {
		t.Fatalf("expected error for frame below MinFrameSize")
	}
}

func TestChecksumDiffersOnMutation(t *testing.T) {
	a := []byte("hello")
	b := []byte("hellO")
	if Checksum(a) == Checksum(b) {
		t.Fatalf("expected different checksums for different payloads")
	}
}
