package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errInvalidID = errors.New("must be a number or null")

// OptionalID is a nullable reference to another record.
// It decodes from a JSON number, a numeric string, an empty string or null; empty and null mean "no reference".
// It always encodes as a number or null.
type OptionalID struct {
	ID    int
	Valid bool
}

func NewOptionalID(id int) OptionalID {
	return OptionalID{ID: id, Valid: true}
}

// OptionalIDFromPtr converts a nullable int (e.g. a scanned column).
func OptionalIDFromPtr(id *int) OptionalID {
	if id == nil {
		return OptionalID{}
	}
	return NewOptionalID(*id)
}

func (o OptionalID) Ptr() *int {
	if !o.Valid {
		return nil
	}
	id := o.ID
	return &id
}

func (o OptionalID) Is(id int) bool { return o.Valid && o.ID == id }

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.ID)), nil
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OptionalID{}
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errInvalidID
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*o = OptionalID{}
			return nil
		}
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return errInvalidID
	}
	*o = NewOptionalID(id)
	return nil
}
