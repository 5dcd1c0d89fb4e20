package proto

// LSNP wire frame codec
// ---------------------
// A frame is UTF-8 text: one "KEY: value" field per line, terminated by a
// blank line (two consecutive newlines). Values may contain spaces but not
// newlines; binary payloads (chunk data, avatars) ride base64-encoded.
// The codec preserves field insertion order on encode and does not interpret
// field semantics beyond requiring TYPE.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
)

const (
	// MaxFrameSize bounds a general LSNP datagram.
	MaxFrameSize = 4096
	// ChunkPayloadSize is the maximum raw byte count carried by one FILE_CHUNK.
	ChunkPayloadSize = 1024

	terminator = "\n\n"
)

// Frame is an ordered KEY→value mapping with a mandatory TYPE field.
type Frame struct {
	keys   []string
	fields map[string]string
}

// NewFrame creates a frame of the given message type.
func NewFrame(msgType string) *Frame {
	f := &Frame{fields: make(map[string]string)}
	f.Set(FieldType, msgType)
	return f
}

// Set stores a field, preserving first-insertion order. Setting an existing
// key overwrites the value in place.
func (f *Frame) Set(key, value string) *Frame {
	if _, ok := f.fields[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.fields[key] = value
	return f
}

// SetInt stores an integer field.
func (f *Frame) SetInt(key string, value int64) *Frame {
	return f.Set(key, strconv.FormatInt(value, 10))
}

// Get returns the value for key ("" if absent).
func (f *Frame) Get(key string) string { return f.fields[key] }

// Has reports whether key is present.
func (f *Frame) Has(key string) bool { _, ok := f.fields[key]; return ok }

// Int parses the field as a base-10 integer.
func (f *Frame) Int(key string) (int64, error) {
	v, ok := f.fields[key]
	if !ok {
		return 0, fmt.Errorf("missing field %s", key)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

// Type returns the frame's TYPE field.
func (f *Frame) Type() string { return f.fields[FieldType] }

// Sender returns USER_ID if present, else FROM. Both identify the
// originating user across the protocol's message family.
func (f *Frame) Sender() string {
	if v, ok := f.fields[FieldUserID]; ok && v != "" {
		return v
	}
	return f.fields[FieldFrom]
}

// Len returns the number of fields.
func (f *Frame) Len() int { return len(f.fields) }

// Fields returns the field keys in insertion order (TYPE first on encoded
// frames built via NewFrame).
func (f *Frame) Fields() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Map returns a copy of every key/value pair, for verbose display.
func (f *Frame) Map() map[string]string {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

// Encode serialises the frame: TYPE first for readability, remaining fields
// in insertion order, then the blank-line terminator.
func (f *Frame) Encode() []byte {
	var b bytes.Buffer
	if t, ok := f.fields[FieldType]; ok {
		b.WriteString(FieldType)
		b.WriteString(": ")
		b.WriteString(t)
		b.WriteByte('\n')
	}
	for _, k := range f.keys {
		if k == FieldType {
			continue
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(f.fields[k])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// String renders the encoded frame (diagnostics / verbose mode).
func (f *Frame) String() string { return string(f.Encode()) }

// Decode parses a received datagram into a Frame. It fails when the frame
// lacks the blank-line terminator, lacks TYPE, or contains a body line with
// no colon separator. Bytes after the terminator are ignored.
func Decode(data []byte) (*Frame, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	idx := strings.Index(text, terminator)
	if idx < 0 {
		return nil, errors.NewFrameError("decode.frame", fmt.Errorf("missing terminator"))
	}
	body := text[:idx]

	f := &Frame{fields: make(map[string]string)}
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.NewFrameError("decode.frame", fmt.Errorf("line without separator: %q", line))
		}
		f.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if f.Type() == "" {
		return nil, errors.NewFrameError("decode.frame", fmt.Errorf("missing TYPE"))
	}
	return f, nil
}
