package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Union is a decoded discriminated object: a tag read from a sibling field and
// the variant selected by it. Value is nil when the tag is not one the caller
// knows about; Raw always holds the original object so nothing is lost.
type Union struct {
	Tag   string
	Value any
	Raw   json.RawMessage
}

// DecodeUnion reads the discriminator field first, then decodes the object into
// the variant constructed by variants[tag]. Unknown tags are not an error.
func DecodeUnion(data []byte, field string, variants map[string]func() any) (Union, error) {
	tag := gjson.GetBytes(data, field)
	if !tag.Exists() || tag.Type != gjson.String {
		return Union{}, fmt.Errorf("discriminator %q missing or not a string", field)
	}

	u := Union{Tag: tag.String(), Raw: append(json.RawMessage(nil), data...)}
	newVariant, ok := variants[u.Tag]
	if !ok {
		return u, nil
	}

	v := newVariant()
	if err := json.Unmarshal(data, v); err != nil {
		return Union{}, fmt.Errorf("decoding %q variant %q: %w", field, u.Tag, err)
	}
	u.Value = v
	return u, nil
}

// MarshalJSON re-encodes the original object.
func (u Union) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	if u.Value != nil {
		return json.Marshal(u.Value)
	}
	return []byte("null"), nil
}
