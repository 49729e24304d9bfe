package gen

import (
	"fmt"
	"sort"
	"strings"
)

// A urlTemplate is a parsed path string: a sequence of literal and parameter
// segments. Compiling it against a set of query bindings yields the Go
// statements that build the request path inside a generated function.
type urlTemplate struct {
	raw      string
	segments []segment
}

type segment struct {
	literal string // set for literal segments
	param   string // set for {param} segments
}

// parseTemplate splits a path string on {param} placeholders. Unbalanced
// braces and empty placeholder names are rejected.
func parseTemplate(path string) (*urlTemplate, error) {
	t := &urlTemplate{raw: path}
	var lit strings.Builder
	rest := path
	for {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open == -1 {
			if closing != -1 {
				return nil, &MalformedTemplateError{Path: path, Reason: "unmatched '}'"}
			}
			lit.WriteString(rest)
			break
		}
		if closing == -1 {
			return nil, &MalformedTemplateError{Path: path, Reason: "unmatched '{'"}
		}
		if closing < open {
			return nil, &MalformedTemplateError{Path: path, Reason: "unmatched '}'"}
		}
		name := rest[open+1 : closing]
		if strings.ContainsAny(name, "{") {
			return nil, &MalformedTemplateError{Path: path, Reason: "nested '{'"}
		}
		if strings.TrimSpace(name) == "" {
			return nil, &MalformedTemplateError{Path: path, Reason: "empty placeholder"}
		}
		lit.WriteString(rest[:open])
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
		t.segments = append(t.segments, segment{param: name})
		rest = rest[closing+1:]
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return t, nil
}

// paramNames returns the placeholder names in template order.
func (t *urlTemplate) paramNames() []string {
	var out []string
	for _, s := range t.segments {
		if s.param != "" {
			out = append(out, s.param)
		}
	}
	return out
}

// queryBindings is the ordered query-parameter table: name to the source
// expression producing its serialized string form, plus the presence guard
// for optional parameters. Order is lexicographic by name, not declaration
// order, so regenerated output is diff-stable.
type queryBindings struct {
	items []queryBinding
}

type queryBinding struct {
	name  string
	expr  string // Go expression yielding the serialized value
	guard string // inclusion predicate; "" means always include
}

func (q *queryBindings) add(name, expr, guard string) {
	q.items = append(q.items, queryBinding{name: name, expr: expr, guard: guard})
	sort.Slice(q.items, func(i, j int) bool { return q.items[i].name < q.items[j].name })
}

func (q *queryBindings) len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// compile renders the statements building the request path into a local `u`.
// pathExprs maps each placeholder name to the Go expression producing its
// string value; every substituted value goes through url.PathEscape — a
// single universal rule, since any path-bound value may carry reserved
// characters.
func (t *urlTemplate) compile(pathExprs map[string]string, q *queryBindings) ([]string, error) {
	var stmts []string

	var format strings.Builder
	var args []string
	for _, s := range t.segments {
		if s.param == "" {
			format.WriteString(s.literal)
			continue
		}
		expr, ok := pathExprs[s.param]
		if !ok {
			return nil, fmt.Errorf("template %q: no parameter for placeholder {%s}", t.raw, s.param)
		}
		format.WriteString("%s")
		args = append(args, "url.PathEscape("+expr+")")
	}

	if len(args) == 0 {
		stmts = append(stmts, fmt.Sprintf("u := %q", format.String()))
	} else {
		stmts = append(stmts, fmt.Sprintf("u := fmt.Sprintf(%q, %s)", format.String(), strings.Join(args, ", ")))
	}

	if q.len() == 0 {
		return stmts, nil
	}

	stmts = append(stmts, fmt.Sprintf("q := make([]string, 0, %d)", q.len()))
	for _, b := range q.items {
		appendStmt := fmt.Sprintf("q = append(q, %q+%s)", b.name+"=", b.expr)
		if b.guard == "" {
			stmts = append(stmts, appendStmt)
		} else {
			stmts = append(stmts, fmt.Sprintf("if %s {", b.guard), "\t"+appendStmt, "}")
		}
	}
	stmts = append(stmts,
		"if len(q) > 0 {",
		"\tu += \"?\" + strings.Join(q, \"&\")",
		"}",
	)
	return stmts, nil
}
