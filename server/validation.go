package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// ValidationErrors maps request fields to their problems. It is returned to
// clients as {"fieldErrors": {...}} with status 400.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + strings.Join(v[f], ", ")
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

type requestFields map[string]json.RawMessage

// decodeFields reads a JSON object body. An empty body is an empty object.
func decodeFields(w http.ResponseWriter, r *http.Request) (requestFields, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, ValidationErrors{"body": {err.Error()}}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return requestFields{}, nil
	}

	var fields requestFields
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ValidationErrors{"body": {"Expected a JSON object"}}
	}
	return fields, nil
}

func (f requestFields) present(name string) (json.RawMessage, bool) {
	raw, ok := f[name]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

func (f requestFields) requiredString(name string, minLen int, errs ValidationErrors) string {
	if _, ok := f.present(name); !ok {
		errs.add(name, "Required")
		return ""
	}
	return f.optionalString(name, "", minLen, errs)
}

func (f requestFields) optionalString(name, fallback string, minLen int, errs ValidationErrors) string {
	raw, ok := f.present(name)
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		errs.add(name, "Expected string")
		return ""
	}
	if utf8.RuneCountInString(s) < minLen {
		errs.add(name, fmt.Sprintf("String must contain at least %d character(s)", minLen))
		return ""
	}
	return s
}

func (f requestFields) optionalInt(name string, fallback, min, max int, errs ValidationErrors) int {
	raw, ok := f.present(name)
	if !ok {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		errs.add(name, "Expected number")
		return 0
	}
	if n != math.Trunc(n) {
		errs.add(name, "Expected integer, received float")
		return 0
	}
	if n < float64(min) {
		errs.add(name, fmt.Sprintf("Number must be greater than or equal to %d", min))
		return 0
	}
	if n > float64(max) {
		errs.add(name, fmt.Sprintf("Number must be less than or equal to %d", max))
		return 0
	}
	return int(n)
}
