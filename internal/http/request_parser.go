package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"wisesplit/internal/core"
)

const maxBodyBytes = 64 << 10

// Amount is a money value sent either as a JSON string ("12,50") or a JSON
// number (12.5). It keeps the raw text; parsing happens where the meaning
// (total or share) is known.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = Amount(n.String())
	return nil
}

// Total parses a strictly positive expense amount.
func (a Amount) Total() (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", string(a), err)
	}
	return d, nil
}

// Share parses one participant's portion. Zero is allowed; the sign is left
// to expense validation.
func (a Amount) Share() (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(string(a)), ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("share amount is required: %w", core.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("share amount %q: %w", string(a), core.ErrInvalidAmount)
	}
	return core.RoundAmount(d), nil
}

// Weight parses a relative split weight.
func (a Amount) Weight() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(a)), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("weight %q: %w", string(a), core.ErrInvalidWeight)
	}
	return d, nil
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown
// fields and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty request body", errBadRequest)
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: request body larger than %d bytes", errBadRequest, tooLarge.Limit)
		default:
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// groupID returns the {id} path value.
func groupID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", fmt.Errorf("%w: missing group id", errBadRequest)
	}
	return id, nil
}
