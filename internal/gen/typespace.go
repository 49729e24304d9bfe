package gen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sdkforge/oas2client/internal/spec"
)

// TypeID is a registry handle denoting one resolved, named type. IDs are
// allocated lazily on first resolution and live for the whole generation run.
type TypeID int

type typeEntry struct {
	name     string // exported Go name; "" for inline renderings
	goType   string // rendering used at reference sites
	isStruct bool   // named object type; pointer form when referenced
	docs     string
	decl     string // full declaration text; "" for inline renderings
	shape    string // structural key
}

// TypeSpace resolves schema fragments to canonical type identifiers. Two
// schemas with identical structural shape and no preferred name of their own
// resolve to the same TypeID; a schema resolved under an explicit preferred
// name always gets its own identifier even when structurally identical to an
// earlier one. The registry is the only mutable state shared across the
// generation pass; its lifetime is scoped to one run.
type TypeSpace struct {
	schemas map[string]spec.Schema
	entries []typeEntry
	byShape map[string]TypeID // anonymous resolutions, keyed structurally
	byName  map[string]TypeID // exported name -> id
}

// NewTypeSpace builds a registry over the document's named schemas.
func NewTypeSpace(sm *spec.ServiceModel) *TypeSpace {
	schemas := sm.Schemas
	if schemas == nil {
		schemas = map[string]spec.Schema{}
	}
	return &TypeSpace{
		schemas: schemas,
		byShape: make(map[string]TypeID),
		byName:  make(map[string]TypeID),
	}
}

const schemaRefPrefix = "#/components/schemas/"

// Resolve returns the TypeID for a schema fragment. preferredName forces a
// named allocation; hint seeds the name of anonymous object types that need
// one. nullable requests a pointer rendering for inline scalar types.
func (ts *TypeSpace) Resolve(preferredName string, sor *spec.SchemaOrRef, nullable bool, hint string) (TypeID, error) {
	if sor != nil && sor.Ref != nil {
		name := strings.TrimPrefix(sor.Ref.Ref, schemaRefPrefix)
		sch, ok := ts.schemas[name]
		if !ok {
			return 0, &DanglingSchemaReferenceError{Ref: sor.Ref.Ref}
		}
		return ts.resolveNamed(name, &sch)
	}

	var schema *spec.Schema
	if sor != nil {
		schema = sor.Schema
	}
	if schema == nil {
		schema = &spec.Schema{}
	}

	if preferredName != "" {
		return ts.resolveNamed(preferredName, schema)
	}

	shape := shapeKey(schema)
	if nullable || schema.Nullable {
		shape = "?" + shape
	}
	if id, ok := ts.byShape[shape]; ok {
		return id, nil
	}

	if isObjectLike(schema) {
		name := toPascalCase(hint)
		if name == "" {
			name = "Type" + strconv.Itoa(len(ts.entries)+1)
		}
		id, err := ts.resolveNamed(name, schema)
		if err != nil {
			return 0, err
		}
		ts.byShape[shape] = id
		return id, nil
	}

	goType, err := ts.renderInline(schema, hint, nullable || schema.Nullable)
	if err != nil {
		return 0, err
	}
	id := TypeID(len(ts.entries))
	ts.entries = append(ts.entries, typeEntry{
		goType: goType,
		docs:   schema.Description,
		shape:  shape,
	})
	ts.byShape[shape] = id
	return id, nil
}

// resolveNamed allocates (or reuses) an identifier bound to an exported name.
// A name already bound to the same shape reuses the earlier binding; a name
// bound to a different shape gets a numeric suffix.
func (ts *TypeSpace) resolveNamed(rawName string, schema *spec.Schema) (TypeID, error) {
	goName := toPascalCase(rawName)
	if goName == "" {
		goName = "Type" + strconv.Itoa(len(ts.entries)+1)
	}
	shape := shapeKey(schema)

	name := goName
	for i := 2; ; i++ {
		id, taken := ts.byName[name]
		if !taken {
			break
		}
		if ts.entries[id].shape == shape {
			return id, nil
		}
		name = goName + strconv.Itoa(i)
	}

	// Register before building the declaration so self-referential schemas
	// terminate.
	id := TypeID(len(ts.entries))
	ts.entries = append(ts.entries, typeEntry{
		name:     name,
		goType:   name,
		isStruct: isObjectLike(schema),
		docs:     schema.Description,
		shape:    shape,
	})
	ts.byName[name] = id

	decl, err := ts.buildDecl(name, schema)
	if err != nil {
		return 0, err
	}
	ts.entries[id].decl = decl
	if decl == "" {
		// Plain named scalar with no enum: render as the underlying type
		// instead of minting a defined type nobody declares.
		inline, err := ts.renderInline(schema, rawName, schema.Nullable)
		if err != nil {
			return 0, err
		}
		ts.entries[id].goType = inline
		ts.entries[id].isStruct = false
	}
	return id, nil
}

// RenderType yields the canonical rendering for a type. asReference produces
// the borrowed (pointer) form for named object types.
func (ts *TypeSpace) RenderType(id TypeID, asReference bool) string {
	e := ts.entries[id]
	if asReference && e.isStruct {
		return "*" + e.goType
	}
	return e.goType
}

// RenderDocs yields the best-available documentation for a type: the schema
// description, falling back to empty.
func (ts *TypeSpace) RenderDocs(id TypeID) string {
	return strings.TrimSpace(ts.entries[id].docs)
}

// IsStruct reports whether the type is a named object type.
func (ts *TypeSpace) IsStruct(id TypeID) bool { return ts.entries[id].isStruct }

// Decls renders every named declaration resolved during the run, in
// allocation order.
func (ts *TypeSpace) Decls() string {
	var b strings.Builder
	for _, e := range ts.entries {
		if e.decl == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.decl)
		b.WriteString("\n")
	}
	return b.String()
}

func isObjectLike(s *spec.Schema) bool {
	if len(s.Properties) > 0 || len(s.AllOf) > 0 {
		return true
	}
	return false
}

// shapeKey computes a canonical structural key for a schema. References are
// folded in by name, not expanded, which keeps recursive schema graphs from
// looping.
func shapeKey(s *spec.Schema) string {
	if s == nil {
		return "any"
	}
	var b strings.Builder
	b.WriteString(s.Type)
	if s.Format != "" {
		b.WriteString("<" + s.Format + ">")
	}
	if len(s.Enum) > 0 {
		b.WriteString("enum[")
		for i, v := range s.Enum {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%v", v)
		}
		b.WriteString("]")
	}
	if len(s.Properties) > 0 {
		names := make([]string, 0, len(s.Properties))
		for n := range s.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		req := make(map[string]bool, len(s.Required))
		for _, r := range s.Required {
			req[r] = true
		}
		b.WriteString("{")
		for i, n := range names {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(n)
			if req[n] {
				b.WriteString("!")
			}
			b.WriteString(":")
			b.WriteString(shapeOrRefKey(s.Properties[n]))
		}
		b.WriteString("}")
	}
	if s.Items != nil {
		b.WriteString("[" + shapeOrRefKey(s.Items) + "]")
	}
	writeComposite(&b, "allOf", s.AllOf)
	writeComposite(&b, "anyOf", s.AnyOf)
	writeComposite(&b, "oneOf", s.OneOf)
	return b.String()
}

func writeComposite(b *strings.Builder, label string, parts []*spec.SchemaOrRef) {
	if len(parts) == 0 {
		return
	}
	b.WriteString(label + "(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString("|")
		}
		b.WriteString(shapeOrRefKey(p))
	}
	b.WriteString(")")
}

func shapeOrRefKey(sor *spec.SchemaOrRef) string {
	if sor == nil {
		return "any"
	}
	if sor.Ref != nil {
		return "$" + strings.TrimPrefix(sor.Ref.Ref, schemaRefPrefix)
	}
	return shapeKey(sor.Schema)
}

// renderInline maps a non-object schema to its Go rendering.
func (ts *TypeSpace) renderInline(s *spec.Schema, hint string, nullable bool) (string, error) {
	ptr := func(t string) string {
		if nullable {
			return "*" + t
		}
		return t
	}
	switch s.Type {
	case "string":
		switch s.Format {
		case "date-time", "date":
			return ptr("time.Time"), nil
		case "binary", "byte":
			return "[]byte", nil
		}
		return ptr("string"), nil
	case "integer":
		return ptr("int64"), nil
	case "number":
		return ptr("float64"), nil
	case "boolean":
		return ptr("bool"), nil
	case "array":
		itemID, err := ts.Resolve("", s.Items, false, hint+" item")
		if err != nil {
			return "", err
		}
		return "[]" + ts.RenderType(itemID, false), nil
	case "object":
		return "map[string]any", nil
	case "":
		if len(s.OneOf) == 1 {
			id, err := ts.Resolve("", s.OneOf[0], nullable, hint)
			if err != nil {
				return "", err
			}
			return ts.RenderType(id, false), nil
		}
		if len(s.AnyOf) == 1 {
			id, err := ts.Resolve("", s.AnyOf[0], nullable, hint)
			if err != nil {
				return "", err
			}
			return ts.RenderType(id, false), nil
		}
		return "any", nil
	}
	return "any", nil
}

// buildDecl renders the named declaration for a schema, or "" when the name
// should collapse to an inline rendering (plain scalars without enums).
func (ts *TypeSpace) buildDecl(name string, s *spec.Schema) (string, error) {
	if isObjectLike(s) {
		return ts.buildStructDecl(name, s)
	}
	switch s.Type {
	case "string", "integer", "number", "boolean":
		if len(s.Enum) == 0 {
			return "", nil
		}
		base := map[string]string{
			"string": "string", "integer": "int64",
			"number": "float64", "boolean": "bool",
		}[s.Type]
		var b strings.Builder
		writeDocComment(&b, name, s.Description)
		vals := make([]string, 0, len(s.Enum))
		for _, v := range s.Enum {
			vals = append(vals, fmt.Sprintf("%v", v))
		}
		fmt.Fprintf(&b, "// Allowed values: %s.\n", strings.Join(vals, ", "))
		fmt.Fprintf(&b, "type %s %s\n", name, base)
		return b.String(), nil
	case "array":
		itemID, err := ts.Resolve("", s.Items, false, name+" item")
		if err != nil {
			return "", err
		}
		var b strings.Builder
		writeDocComment(&b, name, s.Description)
		fmt.Fprintf(&b, "type %s []%s\n", name, ts.RenderType(itemID, false))
		return b.String(), nil
	case "object", "":
		var b strings.Builder
		writeDocComment(&b, name, s.Description)
		fmt.Fprintf(&b, "type %s map[string]any\n", name)
		return b.String(), nil
	}
	return "", nil
}

func (ts *TypeSpace) buildStructDecl(name string, s *spec.Schema) (string, error) {
	props, required, err := ts.flattenProps(s)
	if err != nil {
		return "", err
	}

	propNames := make([]string, 0, len(props))
	for n := range props {
		propNames = append(propNames, n)
	}
	sort.Strings(propNames)

	var b strings.Builder
	writeDocComment(&b, name, s.Description)
	fmt.Fprintf(&b, "type %s struct {\n", name)
	seen := map[string]bool{}
	for _, pn := range propNames {
		fieldName := toPascalCase(pn)
		if fieldName == "" {
			fieldName = "Field"
		}
		for seen[fieldName] {
			fieldName += "_"
		}
		seen[fieldName] = true

		propID, err := ts.Resolve("", props[pn], false, name+" "+pn)
		if err != nil {
			return "", err
		}
		ftype := ts.RenderType(propID, !required[pn])
		tag := pn
		if !required[pn] {
			tag += ",omitempty"
		}
		if d := ts.RenderDocs(propID); d != "" {
			fmt.Fprintf(&b, "\t// %s\n", oneLine(d))
		}
		fmt.Fprintf(&b, "\t%s %s `json:%q`\n", fieldName, ftype, tag)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// flattenProps merges a schema's own properties with those of its allOf
// parts, dereferencing named parts through the registry's schema arena.
func (ts *TypeSpace) flattenProps(s *spec.Schema) (map[string]*spec.SchemaOrRef, map[string]bool, error) {
	props := make(map[string]*spec.SchemaOrRef)
	required := make(map[string]bool)
	merge := func(sch *spec.Schema) {
		for n, p := range sch.Properties {
			props[n] = p
		}
		for _, r := range sch.Required {
			required[r] = true
		}
	}
	for _, part := range s.AllOf {
		if part == nil {
			continue
		}
		if part.Ref != nil {
			refName := strings.TrimPrefix(part.Ref.Ref, schemaRefPrefix)
			sch, ok := ts.schemas[refName]
			if !ok {
				return nil, nil, &DanglingSchemaReferenceError{Ref: part.Ref.Ref}
			}
			merge(&sch)
			continue
		}
		if part.Schema != nil {
			merge(part.Schema)
		}
	}
	merge(s)
	return props, required, nil
}

func writeDocComment(b *strings.Builder, name, desc string) {
	if strings.TrimSpace(desc) == "" {
		return
	}
	fmt.Fprintf(b, "// %s: %s\n", name, oneLine(desc))
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
