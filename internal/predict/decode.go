package predict

import (
	"encoding/json"
	"errors"
	"io"
)

var (
	ErrNotObject    = errors.New("body is not a JSON object")
	ErrTrailingData = errors.New("trailing data after JSON object")
)

// DecodeRecord reads exactly one JSON object from r. Numbers are kept as
// json.Number so out-of-range values in ignored fields cannot fail the
// decode and reach the validator as non-booleans.
func DecodeRecord(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}

	record, ok := body.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return record, nil
}
