package gen

import (
	"fmt"
	"strings"

	"github.com/sdkforge/oas2client/internal/spec"
)

// defaultAuthExempt names the operations allowed to issue mutating requests
// without the client's standard auth wiring. The one known case is the
// self-recursive token-fetch operation: routing it through normal auth would
// recurse while obtaining the very credentials it needs. Kept as an explicit
// table so the whitelist stays auditable.
var defaultAuthExempt = map[string]bool{
	"apps_create_installation_access_token": true,
}

// Options tunes policy choices of the generation pass.
type Options struct {
	// QueryArraySeparator joins multi-value string query parameters. The
	// document format does not pin this down; it is policy, defaulting to a
	// space.
	QueryArraySeparator string
	// AuthExempt overrides the auth-exempt operation table.
	AuthExempt map[string]bool
}

// GenerateFiles synthesizes one function per operation and groups the
// rendered text by normalized tag name. The run is single-pass and
// deterministic: the model's endpoint order is already canonical, so the same
// document always yields byte-identical output. The first error aborts the
// run; nothing partial is returned.
func GenerateFiles(sm *spec.ServiceModel, ts *TypeSpace, opts Options) (map[string]string, error) {
	sep := opts.QueryArraySeparator
	if sep == "" {
		sep = " "
	}
	exempt := opts.AuthExempt
	if exempt == nil {
		exempt = defaultAuthExempt
	}

	tagFiles := make(map[string]string)
	for i := range sm.Endpoints {
		ep := &sm.Endpoints[i]
		oid := toSnakeCase(ep.OperationID)
		if oid == "" {
			oid = deriveOperationID(string(ep.Method), ep.Path)
		}
		fn, tag, err := synthesizeOperation(ts, sm, ep, oid, sep, exempt)
		if err != nil {
			return nil, fmt.Errorf("operation %s (%s %s): %w",
				oid, strings.ToUpper(string(ep.Method)), ep.Path, err)
		}
		tagFiles[tag] += renderFunction(fn) + "\n"
	}
	return tagFiles, nil
}

// synthesizeOperation runs the per-operation state machine: extract, classify
// body, classify parameters, resolve the response type, compile the URL, pick
// the verb strategy, and assemble the descriptor.
func synthesizeOperation(ts *TypeSpace, sm *spec.ServiceModel, ep *spec.EndpointModel, oid, sep string, exempt map[string]bool) (*FnDescriptor, string, error) {
	if len(ep.Tags) != 1 {
		return nil, "", &TagCardinalityError{OperationID: oid, Count: len(ep.Tags)}
	}
	tag := toSnakeCase(ep.Tags[0])

	bodyKind, bodyType, err := classifyBody(ts, oid, ep.RequestBody)
	if err != nil {
		return nil, "", err
	}

	params := make([]ParamDescriptor, 0, len(ep.Parameters))
	pathExprs := make(map[string]string)
	var qb queryBindings
	for _, pm := range ep.Parameters {
		d, err := classifyParameter(ts, pm, sm.Parameters, sep)
		if err != nil {
			return nil, "", err
		}
		params = append(params, d)
		switch {
		case d.Kind == BindPath:
			pathExprs[d.RawName] = pathExpr(d)
		case d.QueryBound:
			qb.add(d.RawName, d.QueryExpr, d.QueryGuard)
		}
	}

	responseType, err := resolveResponseType(ts, oid, ep)
	if err != nil {
		return nil, "", err
	}

	tmpl, err := parseTemplate(ep.Path)
	if err != nil {
		return nil, "", err
	}
	urlStmts, err := tmpl.compile(pathExprs, &qb)
	if err != nil {
		return nil, "", err
	}

	tokenFetch, err := verbStrategy(string(ep.Method), oid, bodyKind != BodyNone, exempt)
	if err != nil {
		return nil, "", err
	}

	name := methodNameFor(oid, tag)
	fn := &FnDescriptor{
		Name:         name,
		Doc:          docLines(name, ep, params),
		Params:       params,
		BodyKind:     bodyKind,
		BodyType:     bodyType,
		ResponseType: responseType,
		URLStmts:     urlStmts,
		Verb:         string(ep.Method),
		TokenFetch:   tokenFetch,
	}
	return fn, tag, nil
}

// pathExpr yields the string expression substituted for a path placeholder.
func pathExpr(d ParamDescriptor) string {
	if d.GoType == "string" {
		return d.Name
	}
	return "fmt.Sprint(" + d.Name + ")"
}

// classifyBody picks the request-body strategy: binary content takes an
// io.Reader, JSON content resolves a named request type serialized to JSON
// bytes, and anything else with a schema is sent as raw bytes — with a plain
// string body when the resolved type is exactly "string".
func classifyBody(ts *TypeSpace, oid string, rb *spec.RequestBodyModel) (BodyKind, string, error) {
	if rb == nil || len(rb.Content) == 0 {
		return BodyNone, "", nil
	}
	for _, m := range rb.Content {
		if m.Mime == "application/octet-stream" {
			return BodyRaw, "io.Reader", nil
		}
	}
	first := rb.Content[0]
	if first.Schema == nil {
		return BodyNone, "", nil
	}
	if first.Mime == "application/json" {
		id, err := ts.Resolve(oid+" request", first.Schema, false, "")
		if err != nil {
			return BodyNone, "", err
		}
		return BodyJSON, ts.RenderType(id, true), nil
	}
	id, err := ts.Resolve("", first.Schema, false, oid+" body")
	if err != nil {
		return BodyNone, "", err
	}
	if rt := ts.RenderType(id, false); rt == "string" {
		return BodyString, "string", nil
	}
	return BodyRaw, "io.Reader", nil
}

// resolveResponseType applies the content-type precedence rules to the first
// response entry; the first matching rule wins.
func resolveResponseType(ts *TypeSpace, oid string, ep *spec.EndpointModel) (string, error) {
	if len(ep.Responses) == 0 {
		return "", nil
	}
	first := ep.Responses[0]
	if len(first.Content) == 0 {
		// No declared content: the operation returns no value.
		return "", nil
	}

	for _, m := range first.Content {
		if m.Mime != "application/json" {
			continue
		}
		if m.HasEncoding {
			return "", &UnsupportedQuerySemanticsError{Name: m.Mime, Reason: "content encoding metadata is not supported"}
		}
		if m.Schema != nil {
			return namedResponseType(ts, oid, m.Schema)
		}
	}

	fm := first.Content[0]
	switch {
	case fm.Mime == "text/plain" || fm.Mime == "text/html" || fm.Mime == "*/*" ||
		strings.HasSuffix(fm.Mime, "octet-stream"):
		if fm.Schema != nil {
			id, err := ts.Resolve("", fm.Schema, false, oid+" response")
			if err != nil {
				return "", err
			}
			return ts.RenderType(id, true), nil
		}
	case fm.Mime == "application/scim+json":
		if fm.HasEncoding {
			return "", &UnsupportedQuerySemanticsError{Name: fm.Mime, Reason: "content encoding metadata is not supported"}
		}
		if fm.Schema != nil {
			return namedResponseType(ts, oid, fm.Schema)
		}
	}

	mimes := make([]string, 0, len(first.Content))
	for _, m := range first.Content {
		mimes = append(mimes, m.Mime)
	}
	return "", &UnrepresentableResponseError{OperationID: oid, ContentTypes: mimes}
}

func namedResponseType(ts *TypeSpace, oid string, s *spec.SchemaOrRef) (string, error) {
	id, err := ts.Resolve(oid+" response", s, false, "")
	if err != nil {
		return "", err
	}
	return ts.RenderType(id, true), nil
}

// verbStrategy validates the verb/body combination and reports whether the
// operation routes through the unauthenticated media path. A GET carrying a
// request body has no attachment strategy: the fetch primitive takes none,
// and dropping a declared body silently would mistype the call.
func verbStrategy(method, oid string, hasBody bool, exempt map[string]bool) (bool, error) {
	if exempt[oid] {
		return true, nil
	}
	switch method {
	case "get":
		if hasBody {
			return false, &MissingAuthenticationContextError{OperationID: oid, Method: method}
		}
		return false, nil
	case "post", "put", "patch", "delete":
		return false, nil
	}
	return false, &MissingAuthenticationContextError{OperationID: oid, Method: method}
}

// docLines assembles the structured comment block: summary, method + path,
// extended description, external-doc link, and one bullet per parameter.
func docLines(name string, ep *spec.EndpointModel, params []ParamDescriptor) []string {
	var doc []string
	performs := fmt.Sprintf("This function performs a `%s` to the `%s` endpoint.",
		strings.ToUpper(string(ep.Method)), ep.Path)

	if s := oneLine(ep.Summary); s != "" {
		doc = append(doc, name+" "+ensurePeriod(s), "", performs)
	} else {
		doc = append(doc, name+" "+lowerFirst(performs[len("This function "):]))
	}

	if d := strings.TrimSpace(ep.Description); d != "" {
		doc = append(doc, "")
		for _, line := range strings.Split(d, "\n") {
			doc = append(doc, strings.TrimRight(line, " \t"))
		}
	}
	if ep.ExternalDocsURL != "" {
		doc = append(doc, "", "FROM: <"+ep.ExternalDocsURL+">")
	}
	if len(params) > 0 {
		doc = append(doc, "", "Parameters:")
		for _, p := range params {
			bullet := fmt.Sprintf("  - %s: %s", p.Name, p.GoType)
			if p.Docs != "" {
				bullet += " -- " + ensurePeriod(p.Docs)
			}
			doc = append(doc, bullet)
		}
	}
	return doc
}

func ensurePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
