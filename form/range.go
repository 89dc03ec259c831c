package form

import "strconv"

// Range filters a timestamp parameter. When Value is set the parameter is sent
// as a bare integer and the bounds are ignored; otherwise each non-nil bound
// is sent as key[gt], key[gte], key[lt] or key[lte].
type Range struct {
	Value *int64
	GT    *int64
	GTE   *int64
	LT    *int64
	LTE   *int64
}

// Exactly matches a single timestamp.
func Exactly(ts int64) *Range {
	return &Range{Value: &ts}
}

// Between matches timestamps in [from, to).
func Between(from, to int64) *Range {
	return &Range{GTE: &from, LT: &to}
}

// AppendForm implements Appender.
func (r Range) AppendForm(key string, values *Values) error {
	if r.Value != nil {
		values.Add(key, strconv.FormatInt(*r.Value, 10))
		return nil
	}
	bounds := []struct {
		name string
		v    *int64
	}{
		{"gt", r.GT},
		{"gte", r.GTE},
		{"lt", r.LT},
		{"lte", r.LTE},
	}
	for _, b := range bounds {
		if b.v != nil {
			values.Add(nest(key, b.name), strconv.FormatInt(*b.v, 10))
		}
	}
	return nil
}
