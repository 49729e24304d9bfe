package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the ServiceModel is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path matches at least one of the
// provided regular expressions. Invalid patterns are replaced with a sentinel
// that never matches rather than aborting the build.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// BuildServiceModel converts an OpenAPI v3 document into the Internal Model.
//
// Paths are visited in lexicographic order and, within a path, operations in
// CanonicalMethodOrder, so a rebuilt model is identical for an unchanged
// document. Parameters keep declaration order: path-level parameters come
// first and an operation-level redeclaration of the same (in, name) pair
// replaces the path-level one in place.
func BuildServiceModel(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*ServiceModel, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	sm := &ServiceModel{
		Title:       safeStr(doc.Info.Title),
		Version:     safeStr(doc.Info.Version),
		Description: safeStr(doc.Info.Description),
	}

	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		sm.Servers = append(sm.Servers, Server{URL: safeStr(s.URL), Description: safeStr(s.Description)})
	}

	if doc.Components != nil {
		sm.Schemas = buildSchemaTable(doc.Components.Schemas)
		sm.Parameters = buildParameterTable(doc.Components.Parameters)
	}

	if doc.Paths != nil {
		pathKeys := make([]string, 0, len(doc.Paths))
		for p := range doc.Paths {
			pathKeys = append(pathKeys, p)
		}
		sort.Strings(pathKeys)

		for _, p := range pathKeys {
			item := doc.Paths[p]
			if item == nil {
				continue
			}

			baseParams := toParameterList(item.Parameters)

			for _, m := range CanonicalMethodOrder {
				op := operationFor(item, m)
				if op == nil {
					continue
				}
				if len(cfg.methods) > 0 {
					if _, ok := cfg.methods[m]; !ok {
						continue
					}
				}
				if len(cfg.pathRes) > 0 && !anyPathMatch(cfg.pathRes, p) {
					continue
				}

				tags := make([]string, 0, len(op.Tags))
				for _, t := range op.Tags {
					if t = strings.TrimSpace(t); t != "" {
						tags = append(tags, t)
					}
				}
				if !allowByTags(tags, cfg) {
					continue
				}

				params := mergeParameters(baseParams, toParameterList(op.Parameters))

				var rb *RequestBodyModel
				if op.RequestBody != nil && op.RequestBody.Value != nil {
					rb = &RequestBodyModel{
						Required: op.RequestBody.Value.Required,
						Content:  toMediaList(op.RequestBody.Value.Content),
					}
				}

				ep := EndpointModel{
					ID:          string(m) + " " + p,
					OperationID: safeStr(op.OperationID),
					Method:      m,
					Path:        p,
					Summary:     safeStr(op.Summary),
					Description: safeStr(op.Description),
					Tags:        tags,
					Parameters:  params,
					RequestBody: rb,
					Responses:   toResponseList(op.Responses),
				}
				if op.ExternalDocs != nil {
					ep.ExternalDocsURL = safeStr(op.ExternalDocs.URL)
				}

				sm.Endpoints = append(sm.Endpoints, ep)
			}
		}
	}

	sm.Tags = collectSortedTags(sm.Endpoints)

	return sm, nil
}

func operationFor(item *openapi3.PathItem, m HttpMethod) *openapi3.Operation {
	switch m {
	case GET:
		return item.Get
	case PUT:
		return item.Put
	case POST:
		return item.Post
	case DELETE:
		return item.Delete
	case OPTIONS:
		return item.Options
	case HEAD:
		return item.Head
	case PATCH:
		return item.Patch
	case TRACE:
		return item.Trace
	}
	return nil
}

func anyPathMatch(res []*regexp.Regexp, p string) bool {
	for _, re := range res {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(cfg.excludeTags) > 0 {
		for _, t := range tags {
			if _, blocked := cfg.excludeTags[t]; blocked {
				return false
			}
		}
	}
	return true
}

func safeStr(s string) string { return strings.TrimSpace(s) }

func buildSchemaTable(schemas openapi3.Schemas) map[string]Schema {
	if len(schemas) == 0 {
		return nil
	}
	out := make(map[string]Schema, len(schemas))
	keys := make([]string, 0, len(schemas))
	for name := range schemas {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		ref := schemas[name]
		if ref == nil {
			continue
		}
		// A named alias ($ref at the top level) flattens to the target's
		// resolved shape so the alias keeps the aliased type's structure.
		// kin-openapi has already resolved Value for internal references.
		if ref.Ref != "" && ref.Value != nil {
			ref = &openapi3.SchemaRef{Value: ref.Value}
		}
		sor := toSchemaOrRef(ref)
		if sor == nil {
			continue
		}
		if sor.Ref != nil {
			// Unresolvable alias; keep a placeholder carrying just the name
			// so lookups still resolve.
			out[name] = Schema{Name: name}
			continue
		}
		schema := *sor.Schema
		schema.Name = name
		out[name] = schema
	}
	return out
}

func buildParameterTable(params openapi3.ParametersMap) map[string]ParameterModel {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]ParameterModel, len(params))
	keys := make([]string, 0, len(params))
	for name := range params {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		ref := params[name]
		pm := toParameterModel(ref)
		if pm == nil {
			continue
		}
		out[name] = *pm
	}
	return out
}

// toParameterList converts parameter refs in declaration order. Parameters
// declared as $ref into components.parameters keep the reference name so the
// classifier can resolve (or reject) them against the shared table.
func toParameterList(refs openapi3.Parameters) []ParameterModel {
	out := make([]ParameterModel, 0, len(refs))
	for _, pref := range refs {
		pm := toParameterModel(pref)
		if pm == nil {
			continue
		}
		out = append(out, *pm)
	}
	return out
}

// mergeParameters keeps declaration order with path-level parameters first;
// an operation-level parameter with the same (in, name) replaces the
// path-level one in place.
func mergeParameters(base, op []ParameterModel) []ParameterModel {
	out := make([]ParameterModel, 0, len(base)+len(op))
	out = append(out, base...)
	for _, p := range op {
		replaced := false
		for i := range out {
			if out[i].In == p.In && out[i].Name == p.Name {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func toParameterModel(pref *openapi3.ParameterRef) *ParameterModel {
	if pref == nil {
		return nil
	}
	pm := &ParameterModel{}
	if pref.Ref != "" {
		pm.Ref = strings.TrimPrefix(pref.Ref, "#/components/parameters/")
	}
	p := pref.Value
	if p == nil {
		if pm.Ref == "" {
			return nil
		}
		return pm
	}
	pm.Name = safeStr(p.Name)
	pm.In = safeStr(p.In)
	pm.Description = safeStr(p.Description)
	pm.Required = p.Required
	pm.Style = safeStr(p.Style)
	pm.AllowEmptyValue = p.AllowEmptyValue
	if p.Explode != nil {
		pm.Explode = *p.Explode
	}
	if p.Schema != nil {
		pm.Schema = toSchemaOrRef(p.Schema)
	}
	return pm
}

func toResponseList(responses openapi3.Responses) []ResponseModel {
	if len(responses) == 0 {
		return nil
	}
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ResponseModel, 0, len(keys))
	for _, code := range keys {
		rref := responses[code]
		if rref == nil || rref.Value == nil {
			continue
		}
		desc := ""
		if rref.Value.Description != nil {
			desc = *rref.Value.Description
		}
		out = append(out, ResponseModel{
			Status:      code,
			Description: desc,
			Content:     toMediaList(rref.Value.Content),
		})
	}
	return out
}

func toMediaList(content openapi3.Content) []Media {
	if content == nil {
		return nil
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Media, 0, len(keys))
	for _, mime := range keys {
		mt := content[mime]
		if mt == nil {
			continue
		}
		var ex any
		if mt.Example != nil {
			ex = mt.Example
		} else if len(mt.Examples) > 0 {
			// Pick the first example value deterministically by key.
			enames := make([]string, 0, len(mt.Examples))
			for name := range mt.Examples {
				enames = append(enames, name)
			}
			sort.Strings(enames)
			if ref := mt.Examples[enames[0]]; ref != nil && ref.Value != nil {
				ex = ref.Value.Value
			}
		}
		out = append(out, Media{
			Mime:        mime,
			Schema:      toSchemaOrRef(mt.Schema),
			HasEncoding: len(mt.Encoding) > 0,
			Example:     ex,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toSchemaOrRef(ref *openapi3.SchemaRef) *SchemaOrRef {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return &SchemaOrRef{Ref: &SchemaRef{Ref: ref.Ref}}
	}
	if ref.Value == nil {
		return nil
	}
	s := &Schema{
		Type:        safeStr(ref.Value.Type),
		Description: safeStr(ref.Value.Description),
		Format:      safeStr(ref.Value.Format),
		Nullable:    ref.Value.Nullable,
		Example:     ref.Value.Example,
		Required:    append([]string(nil), ref.Value.Required...),
	}
	if len(ref.Value.Enum) > 0 {
		s.Enum = append([]any(nil), ref.Value.Enum...)
	}
	if ref.Value.Items != nil {
		s.Items = toSchemaOrRef(ref.Value.Items)
	}
	if len(ref.Value.Properties) > 0 {
		s.Properties = make(map[string]*SchemaOrRef, len(ref.Value.Properties))
		for name, prop := range ref.Value.Properties {
			s.Properties[name] = toSchemaOrRef(prop)
		}
	}
	for _, r := range ref.Value.AllOf {
		s.AllOf = append(s.AllOf, toSchemaOrRef(r))
	}
	for _, r := range ref.Value.AnyOf {
		s.AnyOf = append(s.AnyOf, toSchemaOrRef(r))
	}
	for _, r := range ref.Value.OneOf {
		s.OneOf = append(s.OneOf, toSchemaOrRef(r))
	}
	return &SchemaOrRef{Schema: s}
}

func collectSortedTags(endpoints []EndpointModel) []string {
	set := make(map[string]struct{})
	for _, ep := range endpoints {
		for _, t := range ep.Tags {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
