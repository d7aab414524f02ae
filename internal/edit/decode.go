package edit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJSON is returned when a JSON form field cannot be decoded.
var ErrInvalidJSON = errors.New("invalid JSON")

// DecodeSpec parses an edit specification from JSON. Empty input yields an
// empty Spec; anything other than a JSON object is rejected.
func DecodeSpec(data []byte) (Spec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Spec{}, nil
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: edits: %w", ErrInvalidJSON, err)
	}
	if spec == nil {
		spec = Spec{}
	}
	return spec, nil
}

// DecodeSpecString is DecodeSpec for form values.
func DecodeSpecString(s string) (Spec, error) {
	return DecodeSpec([]byte(strings.TrimSpace(s)))
}
