package gen

import (
	"fmt"

	"github.com/sdkforge/oas2client/internal/spec"
)

// BindKind is a parameter's binding location.
type BindKind string

const (
	BindPath   BindKind = "path"
	BindQuery  BindKind = "query"
	BindHeader BindKind = "header"
	BindCookie BindKind = "cookie"
)

// ParamDescriptor is one classified operation parameter: its raw and escaped
// names, binding kind, resolved semantic type, and — for query-bound
// parameters — the serialization expression and inclusion guard that feed the
// query binding table.
type ParamDescriptor struct {
	RawName  string
	Name     string // reserved-word-escaped Go identifier
	Kind     BindKind
	TypeID   TypeID
	GoType   string
	Required bool
	Docs     string

	// QueryBound is true for form-style query parameters; QueryExpr and
	// QueryGuard are only meaningful when it is set.
	QueryBound bool
	QueryExpr  string
	QueryGuard string
}

// classifyParameter resolves a parameter (inline or a named reference into
// the shared table) to a descriptor. References that do not resolve are
// fatal.
func classifyParameter(ts *TypeSpace, pm spec.ParameterModel, table map[string]spec.ParameterModel, sliceSep string) (ParamDescriptor, error) {
	if pm.Ref != "" {
		resolved, ok := table[pm.Ref]
		if !ok {
			return ParamDescriptor{}, &UnknownParameterReferenceError{Ref: pm.Ref}
		}
		pm = resolved
	}

	name := toParamName(pm.Name)
	id, err := ts.Resolve("", pm.Schema, false, pm.Name)
	if err != nil {
		return ParamDescriptor{}, err
	}

	d := ParamDescriptor{
		RawName:  pm.Name,
		Name:     name,
		Kind:     BindKind(pm.In),
		TypeID:   id,
		GoType:   ts.RenderType(id, false),
		Required: pm.Required,
		Docs:     paramDocs(ts, pm, id),
	}

	if d.Kind != BindQuery {
		return d, nil
	}
	// Only form-style query parameters participate in the query binding
	// table ("form" is also the OpenAPI default when style is omitted).
	if pm.Style != "" && pm.Style != "form" {
		return d, nil
	}
	if pm.AllowEmptyValue {
		// Empty-value query semantics are ambiguous for the generated
		// representation; reject rather than guess.
		return ParamDescriptor{}, &UnsupportedQuerySemanticsError{
			Name:   pm.Name,
			Reason: "allowEmptyValue query parameters are not supported",
		}
	}
	d.QueryBound = true
	d.QueryExpr = serializeExpr(d.Name, d.GoType, sliceSep)
	if !pm.Required {
		d.QueryGuard = presenceGuard(d.Name, d.GoType)
	}
	return d, nil
}

func paramDocs(ts *TypeSpace, pm spec.ParameterModel, id TypeID) string {
	if d := pm.Description; d != "" {
		return oneLine(d)
	}
	return ts.RenderDocs(id)
}

// serializeExpr is the serialization decision table, keyed by the resolved
// semantic type. The string-slice separator is a policy choice, not a fact
// derived from the document format; it is configurable and defaults to a
// space.
func serializeExpr(name, goType, sliceSep string) string {
	switch goType {
	case "string":
		return name
	case "int64", "bool":
		return "fmt.Sprint(" + name + ")"
	case "time.Time":
		return name + ".Format(time.RFC3339)"
	case "[]string":
		return fmt.Sprintf("strings.Join(%s, %q)", name, sliceSep)
	}
	return "fmt.Sprint(" + name + ")"
}

// presenceGuard is the call-time inclusion predicate for optional query
// parameters. Mandatory parameters are always emitted and never get one.
func presenceGuard(name, goType string) string {
	switch goType {
	case "string":
		return name + ` != ""`
	case "int64", "float64":
		return name + " != 0"
	case "bool":
		return name
	case "time.Time":
		return "!" + name + ".IsZero()"
	}
	if len(goType) > 2 && goType[:2] == "[]" {
		return "len(" + name + ") > 0"
	}
	if goType != "" && goType[0] == '*' {
		return name + " != nil"
	}
	return ""
}
