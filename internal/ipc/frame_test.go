package ipc

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Kind: KindStop, Selector: "worker", Force: true}

	if err := writeFrame(&buf, req); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}

	var decoded Request
	if err := readFrame(&buf, &decoded); err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if decoded.Kind != req.Kind || decoded.Selector != req.Selector || decoded.Force != req.Force {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, req)
	}
}

func TestReadFrame_RejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF} // declares a ~4GB body
	buf.Write(header)

	var decoded Request
	err := readFrame(&buf, &decoded)
	if err == nil {
		t.Fatal("expected an error for an oversized frame")
	}
	if !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("expected an 'exceeds limit' error, got: %v", err)
	}
}

func TestReadFrame_TruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, Request{Kind: KindList}); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-1]

	var decoded Request
	err := readFrame(bytes.NewReader(truncated), &decoded)
	if err == nil {
		t.Fatal("expected an error reading a truncated frame")
	}
}
