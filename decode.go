package stripe

import (
	"encoding/json"
)

// Validator is implemented by response types that have required fields.
// A non-nil error turns a successful response into a Deserialization error.
type Validator interface {
	Validate() error
}

// decodeObject decodes a 2xx body into a new T. Unknown keys are ignored.
func decodeObject[T any](status int, body []byte) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(body, out); err != nil {
		return nil, deserializationError(status, body, err)
	}
	if err := validate(out); err != nil {
		return nil, deserializationError(status, body, err)
	}
	return out, nil
}

// validate runs Validator on v when *T implements it.
func validate[T any](v *T) error {
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}
	return nil
}
