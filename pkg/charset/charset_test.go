package charset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// utf16leBytes encodes s as UTF-16LE, optionally prefixed with a BOM.
// Test strings stay within the BMP so surrogate pairs are not needed.
func utf16leBytes(s string, bom bool) []byte {
	var buf []byte
	if bom {
		buf = append(buf, 0xFF, 0xFE)
	}
	for _, r := range s {
		buf = append(buf, byte(r), byte(r>>8))
	}
	return buf
}

func TestDetect_UTF8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"ascii", []byte("plain ascii text")},
		{"multibyte", []byte("naïve café, 日本語")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.data)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != "UTF-8" {
				t.Errorf("Detect() = %v, want UTF-8", got)
			}
		})
	}
}

func TestDetect_UTF16LE(t *testing.T) {
	data := utf16leBytes("hello from the byte order mark", true)

	got, err := Detect(data)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != "UTF-16LE" {
		t.Errorf("Detect() = %v, want UTF-16LE", got)
	}
}

func TestDecodeDetected_UTF8RoundTrip(t *testing.T) {
	original := "configuration values: path=storage, ext=.txt, naïveté intact"

	got, err := DecodeDetected([]byte(original))
	if err != nil {
		t.Fatalf("DecodeDetected() error = %v", err)
	}
	if got != original {
		t.Errorf("DecodeDetected() = %q, want %q", got, original)
	}
}

func TestDecodeDetected_UTF16LE(t *testing.T) {
	original := "stored before the encoding was forgotten"
	data := utf16leBytes(original, true)

	got, err := DecodeDetected(data)
	if err != nil {
		t.Fatalf("DecodeDetected() error = %v", err)
	}
	// The decoder may preserve the BOM as U+FEFF; the content must survive.
	if trimmed := strings.TrimPrefix(got, "\uFEFF"); trimmed != original {
		t.Errorf("DecodeDetected() = %q, want %q", trimmed, original)
	}
}

func TestDecodeDetected_Windows1252(t *testing.T) {
	// Long French text gives the frequency-based detector enough signal to
	// identify a Latin charset reliably.
	original := "Le café est prêt à côté de la fenêtre. Les élèves étudient déjà les " +
		"règles élémentaires de la langue française, et le professeur répète les " +
		"phrases préférées avec une sincérité évidente. La journée s'achève très " +
		"tôt en été, après une dernière leçon récitée à voix basse."

	data, err := Encode(original, "windows-1252")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if bytes.Equal(data, []byte(original)) {
		t.Fatal("test text encodes identically to UTF-8, detection not exercised")
	}

	got, err := DecodeDetected(data)
	if err != nil {
		t.Fatalf("DecodeDetected() error = %v", err)
	}
	if got != original {
		t.Errorf("DecodeDetected() = %q, want %q", got, original)
	}
}

func TestLookup_Aliases(t *testing.T) {
	tests := []struct {
		name string
	}{
		{"utf-8"},
		{"UTF-8"},
		{"latin1"},
		{"ISO-8859-1"},
		{"iso-8859-1"},
		{"windows-1252"},
		{"UTF-16LE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Lookup(tt.name); err != nil {
				t.Errorf("Lookup(%q) error = %v", tt.name, err)
			}
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("no-such-charset")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Lookup() error = %v, want ErrUnknownEncoding", err)
	}
}

func TestDecode_ExplicitName(t *testing.T) {
	data := []byte{'c', 'a', 'f', 0xE9}

	got, err := Decode(data, "latin1")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != "café" {
		t.Errorf("Decode() = %q, want %q", got, "café")
	}
}

func TestDecode_EmptyNameAutodetects(t *testing.T) {
	got, err := Decode([]byte("plain text"), "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != "plain text" {
		t.Errorf("Decode() = %q, want %q", got, "plain text")
	}
}

func TestEncode_Latin1(t *testing.T) {
	got, err := Encode("café", "iso-8859-1")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := []byte{'c', 'a', 'f', 0xE9}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = %v, want %v", got, want)
	}
}

func TestEncode_UTF8PassThrough(t *testing.T) {
	original := "unchanged bytes, même avec des accents"

	got, err := Encode(original, "utf-8")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != original {
		t.Errorf("Encode() = %q, want %q", got, original)
	}
}

func TestEncode_UnrepresentableRune(t *testing.T) {
	if _, err := Encode("日本語", "iso-8859-1"); err == nil {
		t.Error("Encode() expected error for unrepresentable runes, got nil")
	}
}

func TestEncode_UnknownName(t *testing.T) {
	_, err := Encode("text", "no-such-charset")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Encode() error = %v, want ErrUnknownEncoding", err)
	}
}
