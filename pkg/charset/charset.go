// Package charset detects and converts text encodings for stored files.
//
// Detection uses byte-frequency heuristics and BOM sniffing, so content can
// be read back without knowing the charset it was written with. Charset names
// resolve against the WHATWG encoding index first and the IANA registry
// second, which covers both short aliases ("latin1") and MIME names
// ("ISO-8859-1").
package charset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUnknownEncoding is returned when a charset name resolves in neither the
// WHATWG index nor the IANA registry.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Detect guesses the charset of data. Empty input and valid UTF-8 are
// reported as UTF-8 without running the detector.
func Detect(data []byte) (string, error) {
	if len(data) == 0 || utf8.Valid(data) {
		return "UTF-8", nil
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return "", fmt.Errorf("failed to detect encoding: %w", err)
	}
	return result.Charset, nil
}

// Lookup resolves a charset name to its encoding.
func Lookup(name string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	// Detector names do not always match the registries (GB-18030 vs GB18030).
	stripped := strings.ReplaceAll(name, "-", "")
	if enc, err := htmlindex.Get(stripped); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownEncoding)
}

// Decode converts data from the named charset to a UTF-8 string. An empty
// name falls back to auto-detection.
func Decode(data []byte, name string) (string, error) {
	if name == "" {
		return DecodeDetected(data)
	}
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode as %s: %w", name, err)
	}
	return string(decoded), nil
}

// DecodeDetected converts data to a UTF-8 string, guessing the charset from
// the bytes themselves. Valid UTF-8 input is returned as-is, so content
// written with the default encoding round-trips exactly.
func DecodeDetected(data []byte) (string, error) {
	if len(data) == 0 || utf8.Valid(data) {
		return string(data), nil
	}
	name, err := Detect(data)
	if err != nil {
		return "", err
	}
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode as %s: %w", name, err)
	}
	return string(decoded), nil
}

// Encode converts a UTF-8 string to the named charset. An empty name or a
// UTF-8 alias is a pass-through. Runes the target charset cannot represent
// are reported as an error rather than replaced.
func Encode(s, name string) ([]byte, error) {
	if name == "" || isUTF8Name(name) {
		return []byte(s), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode as %s: %w", name, err)
	}
	return encoded, nil
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}
