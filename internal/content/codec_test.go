package content

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Value
	}{
		{name: "plain text", value: Value{Type: TypeText, Text: "hello, world"}},
		{name: "empty text", value: Value{Type: TypeText, Text: ""}},
		{name: "unicode text", value: Value{Type: TypeText, Text: "héllo wörld é"}},
		{name: "file reference", value: Value{Type: TypeFileReference, Text: "/tmp/report.pdf"}},
		{name: "rich text", value: Value{Type: TypeRichText, Data: []byte("{\\rtf1 hi}")}},
		{name: "image bytes", value: Value{Type: TypeImage, Data: []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := Size(tt.value); got != int64(len(payload)) {
				t.Errorf("Size() = %d, want %d", got, len(payload))
			}

			decoded, err := Decode(tt.value.Type, payload)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if decoded.Type != tt.value.Type {
				t.Errorf("decoded type = %q, want %q", decoded.Type, tt.value.Type)
			}
			if decoded.Text != tt.value.Text {
				t.Errorf("decoded text = %q, want %q", decoded.Text, tt.value.Text)
			}
			if !bytes.Equal(decoded.Data, tt.value.Data) {
				t.Errorf("decoded data = %v, want %v", decoded.Data, tt.value.Data)
			}
		})
	}
}

func TestEncodeUnknownType(t *testing.T) {
	if _, err := Encode(Value{Type: Type("video")}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := Decode(Type("video"), nil); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestParseType(t *testing.T) {
	for _, valid := range []string{"text", "rich_text", "image", "file_reference"} {
		if _, err := ParseType(valid); err != nil {
			t.Errorf("ParseType(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseType("html"); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestIndexableText(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		payload []byte
		want    string
	}{
		{name: "text contributes content", typ: TypeText, payload: []byte("find me"), want: "find me"},
		{name: "file reference contributes path", typ: TypeFileReference, payload: []byte("/home/u/a.txt"), want: "/home/u/a.txt"},
		{name: "image contributes nothing", typ: TypeImage, payload: []byte{1, 2, 3}, want: ""},
		{name: "rich text contributes nothing", typ: TypeRichText, payload: []byte("{\\rtf1}"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexableText(tt.typ, tt.payload); got != tt.want {
				t.Errorf("IndexableText() = %q, want %q", got, tt.want)
			}
		})
	}
}
