package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kcz17/pagetime/browser"
)

// TypeError is returned when a script returns a value of an unexpected type.
type TypeError struct {
	Script string
	Want   string
	Got    interface{}
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("script %q returned %T; expected %s", e.Script, e.Got, e.Want)
}

// AttributeReader runs scripts in a session and coerces their results.
// null and undefined results read as the zero value.
type AttributeReader struct {
	session browser.Session
}

func NewAttributeReader(s browser.Session) AttributeReader {
	return AttributeReader{session: s}
}

func (r AttributeReader) execute(ctx context.Context, script string) (interface{}, error) {
	v, err := r.session.ExecuteScript(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("executing %q: %w", script, err)
	}
	return v, nil
}

func (r AttributeReader) String(ctx context.Context, script string) (string, error) {
	v, err := r.execute(ctx, script)
	if err != nil || v == nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	}
	return "", &TypeError{Script: script, Want: "string", Got: v}
}

func (r AttributeReader) Bool(ctx context.Context, script string) (bool, error) {
	v, err := r.execute(ctx, script)
	if err != nil || v == nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Script: script, Want: "bool", Got: v}
	}
	return b, nil
}

func (r AttributeReader) Float(ctx context.Context, script string) (float64, error) {
	f, _, err := r.OptionalFloat(ctx, script)
	return f, err
}

// OptionalFloat also reports whether the script returned a value at all.
func (r AttributeReader) OptionalFloat(ctx context.Context, script string) (float64, bool, error) {
	v, err := r.execute(ctx, script)
	if err != nil || v == nil {
		return 0, false, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, false, &TypeError{Script: script, Want: "number", Got: v}
	}
	return f, true, nil
}

func (r AttributeReader) List(ctx context.Context, script string) ([]interface{}, error) {
	v, err := r.execute(ctx, script)
	if err != nil || v == nil {
		return nil, err
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, &TypeError{Script: script, Want: "list", Got: v}
	}
	return l, nil
}

// Records reads a list of objects. Elements that are not objects are skipped.
func (r AttributeReader) Records(ctx context.Context, script string) ([]Record, error) {
	l, err := r.List(ctx, script)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(l))
	for _, e := range l {
		if m, ok := e.(map[string]interface{}); ok {
			records = append(records, m)
		}
	}
	return records, nil
}

type Record map[string]interface{}

// String returns the string at key, or false if it is missing or not a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Float returns the number at key, or false if it is missing or not a number.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
