// Package document turns rendered template text into a key/value document.
//
// Parsing never fails. Problems are reported as diagnostics next to whatever
// value could be extracted, and callers decide whether to use it.
package document

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Diagnostic describes one problem found while parsing
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// Parsed is the best-effort result of a parse. Null is set when the text
// holds no document or an explicit null; Value is then empty.
type Parsed struct {
	Value  map[string]any
	Null   bool
	Errors []Diagnostic
}

// Parser parses YAML documents
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes text as a YAML mapping. When the whole document does not
// parse, each top-level block is decoded on its own and the blocks that do
// parse are kept.
func (p *Parser) Parse(text string) Parsed {
	value, null, err := decode(text)
	if err == nil {
		return Parsed{Value: value, Null: null}
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		diags := make([]Diagnostic, 0, len(typeErr.Errors))
		for _, msg := range typeErr.Errors {
			diags = append(diags, Diagnostic{Message: msg})
		}
		if value == nil {
			value = map[string]any{}
		}
		return Parsed{Value: value, Errors: diags}
	}

	diags := []Diagnostic{{Message: err.Error()}}
	recovered := make(map[string]any)
	for _, b := range splitBlocks(text) {
		v, _, blockErr := decode(b.text)
		if blockErr != nil {
			diags = append(diags, Diagnostic{Line: b.line, Message: trimYAMLPrefix(blockErr.Error())})
			continue
		}
		for k, val := range v {
			recovered[k] = val
		}
	}

	return Parsed{Value: recovered, Errors: diags}
}

func decode(text string) (map[string]any, bool, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, false, err
	}

	// empty input
	if root.Kind == 0 || len(root.Content) == 0 {
		return map[string]any{}, true, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.MappingNode:
	case yaml.ScalarNode:
		if doc.Tag == "!!null" {
			return map[string]any{}, true, nil
		}
		return nil, false, fmt.Errorf("document root is a scalar, expected a mapping")
	case yaml.SequenceNode:
		return nil, false, fmt.Errorf("document root is a sequence, expected a mapping")
	default:
		return nil, false, fmt.Errorf("document root is not a mapping")
	}

	var raw map[string]any
	err := doc.Decode(&raw)
	if raw == nil {
		raw = map[string]any{}
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalize(v)
	}
	return out, false, err
}

// normalize rewrites nested maps with non-string keys so the value can be
// encoded as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

type block struct {
	line int
	text string
}

// splitBlocks cuts text at every unindented line. Comments, blank lines and
// document markers stay attached to the block they follow.
func splitBlocks(text string) []block {
	var blocks []block
	var current []string
	start := 0

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, block{line: start, text: strings.Join(current, "\n")})
		}
		current = nil
	}

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		topLevel := line != "" && line[0] != ' ' && line[0] != '\t' &&
			!strings.HasPrefix(trimmed, "#") && trimmed != "---" && trimmed != "..."
		if topLevel {
			flush()
			start = i + 1
		}
		if start == 0 {
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

func trimYAMLPrefix(msg string) string {
	msg = strings.TrimPrefix(msg, "yaml: ")
	if strings.HasPrefix(msg, "line ") {
		if idx := strings.Index(msg, ": "); idx >= 0 {
			return msg[idx+2:]
		}
	}
	return msg
}
