package wire

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriteReadPlainFrame_RoundTrips(t *testing.T) {
	header, _ := json.Marshal(&TextHeader{Type: Text, Content: "hello"})
	payload := []byte("payload bytes")

	var buf bytes.Buffer
	if err := WritePlainFrame(&buf, header, payload); err != nil {
		t.Fatalf("WritePlainFrame: %v", err)
	}

	gotHeader, gotPayload, err := ReadPlainFrame(&buf)
	if err != nil {
		t.Fatalf("ReadPlainFrame: %v", err)
	}
	if !bytes.Equal(gotHeader, header) {
		t.Errorf("header = %q, want %q", gotHeader, header)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %q, want %q", gotPayload, payload)
	}
}

func TestWriteReadPlainFrame_NoPayload(t *testing.T) {
	header, _ := json.Marshal(&HeartbeatHeader{Type: Heartbeat})

	var buf bytes.Buffer
	if err := WritePlainFrame(&buf, header, nil); err != nil {
		t.Fatalf("WritePlainFrame: %v", err)
	}

	gotHeader, gotPayload, err := ReadPlainFrame(&buf)
	if err != nil {
		t.Fatalf("ReadPlainFrame: %v", err)
	}
	if !bytes.Equal(gotHeader, header) {
		t.Errorf("header = %q, want %q", gotHeader, header)
	}
	if len(gotPayload) != 0 {
		t.Errorf("payload = %q, want empty", gotPayload)
	}
}

func TestReadPlainFrame_DeclaredLengthTooLarge(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff}) // bogus huge total_length
	if _, _, err := ReadPlainFrame(&buf); err == nil {
		t.Fatal("expected error for oversized declared length")
	}
}

func TestReadPlainFrame_TruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 10}) // declares 10 bytes body, but none follow
	if _, _, err := ReadPlainFrame(&buf); err == nil {
		t.Fatal("expected error for truncated frame body")
	}
}

func TestWriteReadSealedFrame_RoundTrips(t *testing.T) {
	ciphertext := []byte("not-really-sealed-bytes-plus-tag")

	var buf bytes.Buffer
	if err := WriteSealedFrame(&buf, ciphertext); err != nil {
		t.Fatalf("WriteSealedFrame: %v", err)
	}

	got, err := ReadSealedFrame(&buf)
	if err != nil {
		t.Fatalf("ReadSealedFrame: %v", err)
	}
	if !bytes.Equal(got, ciphertext) {
		t.Errorf("ciphertext = %q, want %q", got, ciphertext)
	}
}

func TestEncodeDecodePlaintextPayload_RoundTrips(t *testing.T) {
	header := []byte(`{"type":17}`)
	payload := []byte("chunk bytes here")

	plaintext := EncodePlaintextPayload(header, payload)

	gotHeader, gotPayload, err := DecodePlaintextPayload(plaintext)
	if err != nil {
		t.Fatalf("DecodePlaintextPayload: %v", err)
	}
	if !bytes.Equal(gotHeader, header) {
		t.Errorf("header = %q, want %q", gotHeader, header)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %q, want %q", gotPayload, payload)
	}
}

func TestDecodePlaintextPayload_TooShort(t *testing.T) {
	if _, _, err := DecodePlaintextPayload([]byte{1, 2}); err == nil {
		t.Fatal("expected error for short plaintext")
	}
}

func TestPeekType(t *testing.T) {
	header, _ := json.Marshal(&FileChunkHeader{Type: FileChunk, TransferID: "abc"})
	got, err := peekType(header)
	if err != nil {
		t.Fatalf("peekType: %v", err)
	}
	if got != FileChunk {
		t.Errorf("peekType = %v, want %v", got, FileChunk)
	}
}
