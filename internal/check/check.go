// Package check validates response bodies against expected JSON values.
// A failed check turns an otherwise successful response into a per-request
// failure, so targets that return 200 with an error payload still show up
// in the err column.
package check

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONCheck asserts that a gjson path in the response body resolves to an
// expected literal.
type JSONCheck struct {
	Path     string
	Expected string
}

// MismatchError reports a response whose body did not satisfy the check.
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("check %s: path not found (want %q)", e.Path, e.Expected)
	}
	return fmt.Sprintf("check %s: got %q, want %q", e.Path, e.Actual, e.Expected)
}

// ParseJSONCheck parses a "path=value" expression, e.g. "status=ok" or
// "result.frames=120". The first '=' splits path from value so expected
// values may themselves contain '='.
func ParseJSONCheck(expr string) (*JSONCheck, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	idx := strings.Index(expr, "=")
	if idx <= 0 {
		return nil, fmt.Errorf("expect-json must be path=value, got %q", expr)
	}
	path := strings.TrimSpace(expr[:idx])
	// Strip the optional $. JSONPath prefix; gjson paths are bare.
	path = strings.TrimPrefix(path, "$.")
	if path == "" {
		return nil, fmt.Errorf("expect-json must be path=value, got %q", expr)
	}
	return &JSONCheck{Path: path, Expected: expr[idx+1:]}, nil
}

// Evaluate returns nil when body satisfies the check.
func (c *JSONCheck) Evaluate(body []byte) error {
	result := gjson.GetBytes(body, c.Path)
	if !result.Exists() {
		return &MismatchError{Path: c.Path, Expected: c.Expected}
	}
	if result.String() != c.Expected {
		return &MismatchError{Path: c.Path, Expected: c.Expected, Actual: result.String()}
	}
	return nil
}
