package model

import (
	"bytes"
	"encoding/json"
)

// OptString is a tri-state JSON string field for PATCH payloads.  The three
// states are: key absent (Set == false, leave the column unchanged), key
// present with null or "" (Set == true, Value == nil, clear the column), and
// key present with a value (Set == true, Value != nil).  Collapsing absent
// and null into one state is exactly the bug class this type exists to
// prevent.
type OptString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present in the document,
// which is what makes presence detection work.
func (o *OptString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		// Clients send "" to remove the image; treat it as an explicit clear.
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

// MarshalJSON round-trips the tri-state; an unset value encodes as null
// (callers should omit unset fields instead of relying on this).
func (o OptString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
