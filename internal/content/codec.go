// Package content defines the clipboard content types and the codec that
// converts typed values to and from the opaque byte payloads the
// persistence layer stores.
package content

import "fmt"

// Type identifies the kind of content held by a clipboard record.
type Type string

const (
	// TypeText is plain UTF-8 text.
	TypeText Type = "text"

	// TypeRichText is formatted text (RTF or similar), stored opaque.
	TypeRichText Type = "rich_text"

	// TypeImage is raw encoded image bytes (PNG, TIFF, ...), stored opaque.
	TypeImage Type = "image"

	// TypeFileReference is a path to a file on disk; only the path is
	// persisted, never the file itself.
	TypeFileReference Type = "file_reference"
)

// Valid reports whether t is one of the known content types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeRichText, TypeImage, TypeFileReference:
		return true
	}
	return false
}

// ParseType converts a stored type tag back into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("content: unknown type %q", s)
	}
	return t, nil
}

// Value is a typed clipboard content value. Text and file-reference
// values carry their string form; rich text and images carry raw bytes.
type Value struct {
	Type Type
	Text string // TypeText, TypeFileReference
	Data []byte // TypeRichText, TypeImage
}

// Encode converts a typed value into the opaque payload persisted
// alongside its type tag. Encoding is lossless: Decode(t, Encode(v))
// returns the original value bit for bit.
func Encode(v Value) ([]byte, error) {
	switch v.Type {
	case TypeText, TypeFileReference:
		return []byte(v.Text), nil
	case TypeRichText, TypeImage:
		return v.Data, nil
	default:
		return nil, fmt.Errorf("content: cannot encode unknown type %q", v.Type)
	}
}

// Decode converts a stored payload back into a typed value.
func Decode(t Type, payload []byte) (Value, error) {
	switch t {
	case TypeText, TypeFileReference:
		return Value{Type: t, Text: string(payload)}, nil
	case TypeRichText, TypeImage:
		return Value{Type: t, Data: payload}, nil
	default:
		return Value{}, fmt.Errorf("content: cannot decode unknown type %q", t)
	}
}

// Size returns the logical payload size in bytes, independent of where
// the payload is stored.
func Size(v Value) int64 {
	switch v.Type {
	case TypeText, TypeFileReference:
		return int64(len(v.Text))
	default:
		return int64(len(v.Data))
	}
}

// IndexableText returns the text contribution of a payload to the
// full-text index. Text payloads contribute their content, file
// references their path; images and rich text contribute nothing unless
// an enrichment collaborator converts them first.
func IndexableText(t Type, payload []byte) string {
	switch t {
	case TypeText, TypeFileReference:
		return string(payload)
	default:
		return ""
	}
}
