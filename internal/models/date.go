package models

import (
	"bytes"
	"encoding/json"

	"cloud.google.com/go/civil"
)

// OptionalDate is a date field in a partial update. Set is false when the
// field was absent; a Set field with a nil Date clears the stored value.
type OptionalDate struct {
	Set  bool
	Date *civil.Date
}

func SetDate(d civil.Date) OptionalDate {
	return OptionalDate{Set: true, Date: &d}
}

func ClearDate() OptionalDate {
	return OptionalDate{Set: true}
}

// UnmarshalJSON accepts "YYYY-MM-DD", null, or "" (what HTML date inputs send when emptied).
func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Date = nil
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil
	}
	var d civil.Date
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return err
	}
	o.Date = &d
	return nil
}

// Or returns the new value when set, otherwise the current one.
func (o OptionalDate) Or(current *civil.Date) *civil.Date {
	if o.Set {
		return o.Date
	}
	return current
}
