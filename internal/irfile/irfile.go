// Package irfile reads and writes IR modules on disk.
//
// A file is a container holding the IR format version, the producer and one
// module. The container is stored as MessagePack (the compact default) or as
// JSON; Decode tells them apart by the first byte. Text output is for people
// and cannot be read back.
package irfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"

	"firopt/internal/fir"
)

// FormatVersion is the IR format written by this package.
const FormatVersion = "1.0.0"

// supportedFormats is the range of format versions Decode accepts.
const supportedFormats = ">= 1.0.0, < 2.0.0"

var (
	// ErrFormatVersion reports a file written in an unsupported format.
	ErrFormatVersion = errors.New("unsupported IR format version")
	// ErrEmpty reports a container without a module.
	ErrEmpty = errors.New("IR file has no module")
)

// File is the on-disk container.
type File struct {
	Format   string      `json:"format"`
	Producer string      `json:"producer,omitempty"`
	Module   *fir.Module `json:"module"`
}

// New wraps m in a container of the current format.
func New(m *fir.Module, producer string) *File {
	return &File{Format: FormatVersion, Producer: producer, Module: m}
}

// Encoding selects the serialisation of a file.
type Encoding uint8

const (
	EncodingMsgpack Encoding = iota
	EncodingJSON
	EncodingText
)

func (e Encoding) String() string {
	switch e {
	case EncodingMsgpack:
		return "msgpack"
	case EncodingJSON:
		return "json"
	case EncodingText:
		return "text"
	}
	return "unknown"
}

// ParseEncoding converts a flag value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "msgpack", "mp", "":
		return EncodingMsgpack, nil
	case "json":
		return EncodingJSON, nil
	case "text", "txt":
		return EncodingText, nil
	}
	return EncodingMsgpack, fmt.Errorf("invalid encoding %q (expected: msgpack|json|text)", s)
}

// Ext is the file extension written for e.
func (e Encoding) Ext() string {
	switch e {
	case EncodingJSON:
		return ".fir.json"
	case EncodingText:
		return ".fir.txt"
	}
	return ".firb"
}

// IsIRPath reports whether path has an extension Read understands.
func IsIRPath(path string) bool {
	return strings.HasSuffix(path, ".firb") || strings.HasSuffix(path, ".fir.json")
}

// Stem strips the IR extension from path.
func Stem(path string) string {
	for _, ext := range []string{".fir.json", ".fir.txt", ".firb"} {
		if s, ok := strings.CutSuffix(path, ext); ok {
			return s
		}
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// CheckFormat verifies that v is a format version this package can read.
func CheckFormat(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrFormatVersion, v, err)
	}
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return err
	}
	if !c.Check(ver) {
		return fmt.Errorf("%w: %s (supported: %s)", ErrFormatVersion, ver, supportedFormats)
	}
	return nil
}

// Decode reads a container in either binary encoding, checks its format and
// normalises its names.
func Decode(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	var f File
	if isJSON(br) {
		dec := json.NewDecoder(br)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	} else {
		dec := msgpack.NewDecoder(br)
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode msgpack: %w", err)
		}
	}
	if err := CheckFormat(f.Format); err != nil {
		return nil, err
	}
	if f.Module == nil {
		return nil, ErrEmpty
	}
	f.Module = Normalize(f.Module)
	return &f, nil
}

// isJSON peeks past leading whitespace for an opening brace.
func isJSON(br *bufio.Reader) bool {
	for n := 1; ; n++ {
		b, err := br.Peek(n)
		if err != nil || len(b) < n {
			return false
		}
		switch c := b[n-1]; c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c == '{'
		}
	}
}

// Encode writes f to w.
func Encode(w io.Writer, f *File, enc Encoding) error {
	if f == nil || f.Module == nil {
		return ErrEmpty
	}
	switch enc {
	case EncodingMsgpack:
		e := msgpack.NewEncoder(w)
		e.SetCustomStructTag("json")
		e.UseCompactInts(true)
		return e.Encode(f)
	case EncodingJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(f)
	case EncodingText:
		return fir.DumpModule(w, f.Module, fir.DumpOptions{})
	}
	return fmt.Errorf("unknown encoding %d", enc)
}

// Marshal encodes f into memory.
func Marshal(f *File, enc Encoding) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes the file at path.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes f to path through a temporary file renamed into place, so
// a reader never sees a partial file.
func Write(path string, f *File, enc Encoding) error {
	data, err := Marshal(f, enc)
	if err != nil {
		return err
	}
	return WriteBytes(path, data)
}

// WriteBytes atomically replaces path with already encoded data.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".firopt-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
