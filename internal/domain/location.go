package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Coordinate is a latitude or longitude. The tracking channel sends numbers,
// some REST payloads send numeric strings; both decode to the same value.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", b, err)
	}
	*c = Coordinate(f)
	return nil
}

type LatLng struct {
	Latitude  Coordinate `json:"latitude"`
	Longitude Coordinate `json:"longitude"`
}
