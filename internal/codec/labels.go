package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
)

// LabelCodec maps disease names to dense class ids. Ids follow the sorted
// order of the distinct names, so the same dataset always yields the same
// id space.
type LabelCodec struct {
	classes []string
	index   map[string]int
}

// FitLabels builds a LabelCodec from the (possibly repeated) target values.
func FitLabels(names []string) (*LabelCodec, error) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return nil, fmt.Errorf("empty disease label")
		}
		seen[n] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("no disease labels")
	}
	classes := make([]string, 0, len(seen))
	for n := range seen {
		classes = append(classes, n)
	}
	sort.Strings(classes)
	return newLabelCodec(classes), nil
}

func newLabelCodec(classes []string) *LabelCodec {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return &LabelCodec{classes: classes, index: idx}
}

// Encode returns the class id for name.
func (l *LabelCodec) Encode(name string) (int, error) {
	id, ok := l.index[name]
	if !ok {
		return 0, &UnknownCategoryError{Field: "disease", Value: name}
	}
	return id, nil
}

// EncodeAll encodes a column of names.
func (l *LabelCodec) EncodeAll(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		id, err := l.Encode(n)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Decode returns the disease name for class id.
func (l *LabelCodec) Decode(id int) (string, error) {
	if id < 0 || id >= len(l.classes) {
		return "", &UnknownCategoryError{Field: "disease", Code: &id}
	}
	return l.classes[id], nil
}

// Classes returns the disease names in class-id order.
func (l *LabelCodec) Classes() []string {
	out := make([]string, len(l.classes))
	copy(out, l.classes)
	return out
}

// Len returns the number of classes.
func (l *LabelCodec) Len() int { return len(l.classes) }

type labelBlob struct {
	Version int
	Classes []string
}

const labelBlobVersion = 1

// MarshalBinary implements encoding.BinaryMarshaler.
func (l *LabelCodec) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(labelBlob{Version: labelBlobVersion, Classes: l.classes}); err != nil {
		return nil, fmt.Errorf("encode label codec: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (l *LabelCodec) UnmarshalBinary(data []byte) error {
	var blob labelBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return fmt.Errorf("decode label codec: %w", err)
	}
	if blob.Version != labelBlobVersion {
		return fmt.Errorf("unsupported label codec version %d", blob.Version)
	}
	if len(blob.Classes) == 0 {
		return fmt.Errorf("label codec has no classes")
	}
	seen := make(map[string]struct{}, len(blob.Classes))
	for _, c := range blob.Classes {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("label codec has duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	*l = *newLabelCodec(blob.Classes)
	return nil
}
