package filesystem

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// Encoding labels with special handling. Any other WHATWG label
// ("latin1", "windows-1252", "shift_jis", "utf-16le", ...) is also accepted.
const (
	EncodingUTF8  = "utf-8"
	EncodingASCII = "ascii"
	EncodingAuto  = "auto"
)

func normalizeEncoding(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	switch label {
	case "", "utf8":
		return EncodingUTF8
	case "us-ascii":
		return EncodingASCII
	}
	return label
}

// checkEncoding rejects unknown labels before the file is opened.
func checkEncoding(label, path string) error {
	switch label {
	case EncodingUTF8, EncodingASCII, EncodingAuto:
		return nil
	}
	if enc, _ := charset.Lookup(label); enc == nil {
		return sandbox.Errorf(sandbox.KindInvalidArgument, path, "unsupported encoding %q", label)
	}
	return nil
}

// decode converts data to a Go string using label, returning the name of the
// encoding actually applied.
func decode(data []byte, label, path string) (string, string, error) {
	switch label {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return "", "", sandbox.Errorf(sandbox.KindDecodeError, path, "cannot decode %s with utf-8 encoding", path)
		}
		return string(data), EncodingUTF8, nil

	case EncodingASCII:
		for _, b := range data {
			if b >= utf8.RuneSelf {
				return "", "", sandbox.Errorf(sandbox.KindDecodeError, path, "cannot decode %s with ascii encoding", path)
			}
		}
		return string(data), EncodingASCII, nil

	case EncodingAuto:
		if utf8.Valid(data) {
			return string(data), EncodingUTF8, nil
		}
		result, err := chardet.NewTextDetector().DetectBest(data)
		if err != nil {
			return "", "", sandbox.Errorf(sandbox.KindDecodeError, path, "cannot detect encoding of %s", path)
		}
		label = strings.ToLower(result.Charset)
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		return "", "", sandbox.Errorf(sandbox.KindDecodeError, path, "cannot decode %s: unsupported encoding %q", path, label)
	}

	body, enc, name := stripBOM(data, enc, name)
	out, ok := strictDecode(enc, body)
	if !ok {
		return "", "", sandbox.Errorf(sandbox.KindDecodeError, path, "cannot decode %s with %s encoding", path, name)
	}
	return string(out), name, nil
}

// stripBOM removes a UTF-8 or UTF-16 byte order mark, which takes precedence
// over the requested encoding.
func stripBOM(data []byte, enc encoding.Encoding, name string) ([]byte, encoding.Encoding, string) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], unicode.UTF8, EncodingUTF8
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return data[2:], unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), "utf-16le"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return data[2:], unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), "utf-16be"
	}
	return data, enc, name
}

// strictDecode decodes data and fails on invalid input. Decoders substitute
// U+FFFD for bad sequences, so output containing it is only accepted when it
// encodes back to exactly the input, meaning the file really holds U+FFFD.
func strictDecode(enc encoding.Encoding, data []byte) ([]byte, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, false
	}
	if !bytes.ContainsRune(out, utf8.RuneError) {
		return out, true
	}
	back, _, err := transform.Bytes(enc.NewEncoder(), out)
	if err != nil || !bytes.Equal(back, data) {
		return nil, false
	}
	return out, true
}
