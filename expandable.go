package stripe

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Expandable holds a field that the Service sends either as a bare id or, when
// expanded, as the full object. It is re-encoded in the form it arrived in.
//
// Reference cycles between resources are broken here: a cycle is always
// encoded as an id, so decoded values form trees.
type Expandable[T any] struct {
	ID     string
	Object *T
}

// ExpandableID builds an unexpanded reference.
func ExpandableID[T any](id string) Expandable[T] {
	return Expandable[T]{ID: id}
}

// ExpandableObject builds an expanded reference.
func ExpandableObject[T any](id string, obj *T) Expandable[T] {
	return Expandable[T]{ID: id, Object: obj}
}

// IsExpanded reports whether the full object is present.
func (e Expandable[T]) IsExpanded() bool {
	return e.Object != nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Expandable[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = Expandable[T]{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = Expandable[T]{ID: id}
		return nil
	case len(data) > 0 && data[0] == '{':
		obj := new(T)
		if err := json.Unmarshal(data, obj); err != nil {
			return err
		}
		if err := validate(obj); err != nil {
			return err
		}
		*e = Expandable[T]{ID: gjson.GetBytes(data, "id").String(), Object: obj}
		return nil
	default:
		return fmt.Errorf("expandable field must be a string or an object, got %s", data)
	}
}

// MarshalJSON implements json.Marshaler.
func (e Expandable[T]) MarshalJSON() ([]byte, error) {
	if e.Object != nil {
		return json.Marshal(e.Object)
	}
	if e.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(e.ID)
}
