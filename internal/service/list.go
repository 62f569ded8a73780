package service

import (
	"bytes"
	"encoding/json"
)

// list decodes either a JSON array or a paginated {"results": [...]} envelope.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var p page[T]
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*l = p.Results
	return nil
}
