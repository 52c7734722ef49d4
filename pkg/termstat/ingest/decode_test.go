package ingest

import (
	"strings"
	"testing"
)

func TestDecodeTextUTF8(t *testing.T) {
	got, err := DecodeText([]byte("привет hello"), nil)
	if err != nil {
		t.Fatalf("DecodeText() error: %v", err)
	}
	if got != "привет hello" {
		t.Errorf("DecodeText() = %q", got)
	}
}

func TestDecodeTextWindows1251Fallback(t *testing.T) {
	// "привет" in windows-1251; not valid UTF-8.
	data := []byte{0xEF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}

	got, err := DecodeText(data, nil)
	if err != nil {
		t.Fatalf("DecodeText() error: %v", err)
	}
	if got != "привет" {
		t.Errorf("DecodeText() = %q, want %q", got, "привет")
	}
}

func TestDecodeTextRespectsOrder(t *testing.T) {
	// Valid UTF-8 bytes decoded as windows-1251 give mojibake; the encoding
	// list decides which interpretation wins.
	got, err := DecodeText([]byte("abc"), []string{"windows-1251"})
	if err != nil {
		t.Fatalf("DecodeText() error: %v", err)
	}
	if got != "abc" {
		t.Errorf("DecodeText() = %q", got)
	}
}

func TestDecodeTextExhaustedEncodings(t *testing.T) {
	data := []byte{0xEF, 0xF0, 0xE8}

	_, err := DecodeText(data, []string{"utf-8"})
	if err == nil {
		t.Fatal("expected an error when every encoding fails")
	}
	if !strings.Contains(err.Error(), "utf-8") {
		t.Errorf("error should name the attempted encodings: %v", err)
	}
}

func TestDecodeTextUnsupportedEncoding(t *testing.T) {
	if _, err := DecodeText([]byte("x"), []string{"koi8-r"}); err == nil {
		t.Fatal("expected an error for an unsupported encoding name")
	}
}
