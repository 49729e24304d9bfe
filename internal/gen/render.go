package gen

import (
	"fmt"
	"strings"
)

// BodyKind is the request-body attachment strategy for one operation.
type BodyKind int

const (
	BodyNone   BodyKind = iota
	BodyJSON            // named request type, JSON-serialized
	BodyRaw             // caller-supplied io.Reader
	BodyString          // plain string body
)

// FnDescriptor is the structured form of one generated function: the decision
// logic fills it in and the renderer below turns it into text. Keeping the
// two apart keeps the decisions testable without string comparisons.
type FnDescriptor struct {
	Name         string   // exported method name
	Doc          []string // doc comment lines, without the leading "//"
	Params       []ParamDescriptor
	BodyKind     BodyKind
	BodyType     string   // rendered type of the body parameter, "" when none
	ResponseType string   // "" means no value
	URLStmts     []string // statements that bind `u`
	Verb         string   // lowercase HTTP method
	TokenFetch   bool     // route through the unauthenticated media path
}

// renderFunction turns a descriptor into Go source for one client method.
func renderFunction(d *FnDescriptor) string {
	var b strings.Builder

	for _, line := range d.Doc {
		if line == "" {
			b.WriteString("//\n")
			continue
		}
		b.WriteString("// " + line + "\n")
	}

	b.WriteString("func (c *Client) " + d.Name + "(ctx context.Context")
	for _, p := range d.Params {
		b.WriteString(", " + p.Name + " " + p.GoType)
	}
	switch d.BodyKind {
	case BodyJSON:
		b.WriteString(", body " + d.BodyType)
	case BodyRaw:
		b.WriteString(", body io.Reader")
	case BodyString:
		b.WriteString(", body string")
	}
	if d.ResponseType == "" {
		b.WriteString(") error {\n")
	} else {
		b.WriteString(") (" + d.ResponseType + ", error) {\n")
	}

	for _, s := range d.URLStmts {
		writeIndented(&b, s)
	}

	for _, s := range bodyPrepStmts(d) {
		writeIndented(&b, s)
	}

	for _, s := range callStmts(d) {
		writeIndented(&b, s)
	}

	b.WriteString("}\n")
	return b.String()
}

// bodyPrepStmts produces the statements that turn the body parameter into an
// io.Reader for the client primitives.
func bodyPrepStmts(d *FnDescriptor) []string {
	switch d.BodyKind {
	case BodyJSON:
		return []string{
			"b, err := json.Marshal(body)",
			"if err != nil {",
			"\treturn " + errorReturn(d) + "err",
			"}",
		}
	default:
		return nil
	}
}

// callStmts produces the statements issuing the request and returning the
// decoded value.
func callStmts(d *FnDescriptor) []string {
	outArg := "nil"
	if d.ResponseType != "" {
		outArg = "&out"
	}

	var call string
	switch {
	case d.TokenFetch:
		call = fmt.Sprintf("c.postMedia(ctx, u, %s, mediaJSON, authJWT, %s)", bodyArg(d), outArg)
	case d.Verb == "get":
		call = fmt.Sprintf("c.get(ctx, u, %s)", outArg)
	default:
		call = fmt.Sprintf("c.%s(ctx, u, %s, %s)", d.Verb, bodyArg(d), outArg)
	}

	if d.ResponseType == "" {
		return []string{"return " + call}
	}

	if strings.HasPrefix(d.ResponseType, "*") {
		return []string{
			"var out " + d.ResponseType[1:],
			"if err := " + call + "; err != nil {",
			"\treturn nil, err",
			"}",
			"return &out, nil",
		}
	}
	return []string{
		"var out " + d.ResponseType,
		"if err := " + call + "; err != nil {",
		"\treturn " + errorReturn(d) + "err",
		"}",
		"return out, nil",
	}
}

func bodyArg(d *FnDescriptor) string {
	switch d.BodyKind {
	case BodyJSON:
		return "bytes.NewReader(b)"
	case BodyRaw:
		return "body"
	case BodyString:
		return "strings.NewReader(body)"
	}
	return "nil"
}

// errorReturn renders the zero-value prefix for an early error return.
func errorReturn(d *FnDescriptor) string {
	if d.ResponseType == "" {
		return ""
	}
	if strings.HasPrefix(d.ResponseType, "*") || strings.HasPrefix(d.ResponseType, "[]") ||
		strings.HasPrefix(d.ResponseType, "map[") || d.ResponseType == "any" {
		return "nil, "
	}
	switch d.ResponseType {
	case "string":
		return `"", `
	case "int64", "float64":
		return "0, "
	case "bool":
		return "false, "
	}
	return fmt.Sprintf("%s{}, ", d.ResponseType)
}

func writeIndented(b *strings.Builder, stmt string) {
	b.WriteString("\t" + stmt + "\n")
}
