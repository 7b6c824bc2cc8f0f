package padding

import (
	"bytes"
	"errors"
	"testing"

	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
)

func TestRoundtrip(t *testing.T) {
	targets := []int{8, 64, 8192, 12288, 131072}
	payloads := [][]byte{
		nil,
		[]byte("hello"),
		[]byte(`{"hello":"world","n":123}`),
		bytes.Repeat([]byte("x"), 100),
	}

	for _, target := range targets {
		for _, p := range payloads {
			if len(p) > target-8 {
				continue
			}
			frame, err := Pad(p, target)
			if err != nil {
				t.Fatalf("Pad(len=%d, target=%d) error = %v", len(p), target, err)
			}
			if len(frame) != target {
				t.Fatalf("Pad(len=%d, target=%d) frame len = %d, want %d", len(p), target, len(frame), target)
			}

			got, err := Unpad(frame)
			if err != nil {
				t.Fatalf("Unpad() error = %v", err)
			}
			if !bytes.Equal(got, p) && !(len(got) == 0 && len(p) == 0) {
				t.Fatalf("Unpad(Pad(p)) = %v, want %v", got, p)
			}
		}
	}
}

func TestPadRefusesOversize(t *testing.T) {
	target := 64
	payload := bytes.Repeat([]byte("x"), target)
	_, err := Pad(payload, target)
	if err == nil {
		t.Fatal("expected PayloadTooLargeError")
	}
	var want *gwerrs.PayloadTooLargeError
	if !errors.As(err, &want) {
		t.Fatalf("expected PayloadTooLargeError, got %v (%T)", err, err)
	}
	if want.Actual != target || want.Limit != target-8 {
		t.Fatalf("PayloadTooLargeError = %+v, want Actual=%d Limit=%d", want, target, target-8)
	}
}

func TestPadRefusesTinyTarget(t *testing.T) {
	_, err := Pad([]byte("x"), 4)
	if !gwerrs.Is(err, gwerrs.KindInvalidPadding) {
		t.Fatalf("expected KindInvalidPadding, got %v", err)
	}
}

func TestUnpadRejectsShortBuffer(t *testing.T) {
	_, err := Unpad([]byte{1, 2, 3})
	if !gwerrs.Is(err, gwerrs.KindInvalidPadding) {
		t.Fatalf("expected KindInvalidPadding, got %v", err)
	}
}

func TestUnpadRejectsBadTag(t *testing.T) {
	frame, err := Pad([]byte("hi"), 64)
	if err != nil {
		t.Fatal(err)
	}
	frame[0] = 'X'
	if _, err := Unpad(frame); !gwerrs.Is(err, gwerrs.KindInvalidPadding) {
		t.Fatalf("expected KindInvalidPadding, got %v", err)
	}
}

func TestUnpadRejectsOverlongDeclaredLength(t *testing.T) {
	frame, err := Pad([]byte("hi"), 64)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the declared length to claim far more bytes than the frame holds.
	frame[4], frame[5], frame[6], frame[7] = 0xff, 0xff, 0xff, 0x00
	if _, err := Unpad(frame); !gwerrs.Is(err, gwerrs.KindInvalidPadding) {
		t.Fatalf("expected KindInvalidPadding, got %v", err)
	}
}

func TestFillerPattern(t *testing.T) {
	frame, err := Pad([]byte("ab"), 16)
	if err != nil {
		t.Fatal(err)
	}
	// header(8) + payload(2) = 10; filler runs from index 10 to 15.
	want := []byte{' ', '\n', ' ', '\n', ' ', '\n'}
	if !bytes.Equal(frame[10:], want) {
		t.Fatalf("filler = %v, want %v", frame[10:], want)
	}
}
