package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParamDef describes one tool parameter.
type ParamDef struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// Params are the validated arguments of a tool call.
type Params map[string]interface{}

// validate keeps known parameters, fills defaults and rejects missing required ones.
func (t *Tool) validate(in map[string]interface{}) (Params, error) {
	out := Params{}
	for name, def := range t.Parameters {
		if v, ok := in[name]; ok && v != nil {
			out[name] = v
			continue
		}
		if def.Required {
			return nil, invalidParams("Required parameter missing: " + name)
		}
		if def.Default != nil {
			out[name] = def.Default
		}
	}
	return out, nil
}

func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int accepts JSON numbers and numeric strings.
func (p Params) Int(name string) (int64, error) {
	switch v := p[name].(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, invalidParams(fmt.Sprintf("Parameter %s must be an integer", name))
		}
		return n, nil
	default:
		return 0, invalidParams(fmt.Sprintf("Parameter %s must be an integer", name))
	}
}

func (p Params) Bool(name string) bool {
	switch v := p[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	default:
		return false
	}
}

func (p Params) Object(name string) map[string]interface{} {
	if m, ok := p[name].(map[string]interface{}); ok {
		return m
	}
	return nil
}

// RawJSON re-encodes an object parameter. Strings are passed through.
func (p Params) RawJSON(name string) ([]byte, error) {
	switch v := p[name].(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, invalidParams(fmt.Sprintf("Parameter %s is not valid JSON", name))
		}
		return b, nil
	}
}
