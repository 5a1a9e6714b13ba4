package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID identifies a row. Tables may key rows by uuid or bigint, so it decodes
// from either a JSON string or a JSON number.
type ID string

// LocalPrefix marks ids minted on the client for optimistic entries
const LocalPrefix = "local-"

// IsLocal reports whether the id was minted on the client
func (id ID) IsLocal() bool {
	return strings.HasPrefix(string(id), LocalPrefix)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}
