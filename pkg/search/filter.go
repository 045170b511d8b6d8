// Package search evaluates JMESPath filter expressions against elements.
package search

import (
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/jmespath/go-jmespath"
)

// Filter is a compiled expression. An element matches when the expression yields a
// truthy value. Field names are the element's JSON names, e.g.
// properties.additional_properties.owner == 'ops'.
type Filter struct {
	expression string
	compiled   *jmespath.JMESPath
}

// Compile parses a JMESPath expression.
func Compile(expression string) (*Filter, error) {
	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	return &Filter{expression: expression, compiled: compiled}, nil
}

func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the expression against the element and reports a truthy result.
func (f *Filter) Match(element models.Element) (bool, error) {
	data, err := toDocument(element)
	if err != nil {
		return false, err
	}
	result, err := f.compiled.Search(data)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", f.expression, err)
	}
	return truthy(result), nil
}

func toDocument(element models.Element) (any, error) {
	bs, err := json.Marshal(element)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(bs, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func truthy(result any) bool {
	switch v := result.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
