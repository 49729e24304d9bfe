package gen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// reservedParamNames are identifiers that cannot be used verbatim as
// generated function parameters: Go keywords, the package names the emitted
// files import, and identifiers the emitted bodies bind themselves. Escaped
// names get a trailing underscore, applied uniformly in the signature, query
// serialization, and docs.
var reservedParamNames = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,

	"bytes": true, "context": true, "fmt": true, "io": true, "json": true,
	"strings": true, "time": true, "url": true,

	"b": true, "body": true, "c": true, "ctx": true, "err": true, "out": true,
	"q": true, "ref": true, "resp": true, "u": true, "zero": true,
}

// escapeReserved appends a trailing underscore to reserved identifiers.
func escapeReserved(name string) string {
	if reservedParamNames[name] {
		return name + "_"
	}
	return name
}

// splitWords breaks an identifier into words on non-alphanumeric runes and on
// lower-to-upper case boundaries, so "itemId", "item_id" and "item-id" all
// split the same way.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return words
}

// toSnakeCase normalizes any identifier to snake_case.
func toSnakeCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// toPascalCase builds an exported Go identifier. Names that would start with
// a digit get a leading "T".
func toPascalCase(s string) string {
	words := splitWords(s)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(titleCaser.String(strings.ToLower(w)))
	}
	name := b.String()
	if name == "" {
		return ""
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = "T" + name
	}
	return name
}

// toParamName builds an unexported Go identifier with reserved names escaped.
func toParamName(s string) string {
	name := toPascalCase(s)
	if name == "" {
		return "param"
	}
	name = strings.ToLower(name[:1]) + name[1:]
	return escapeReserved(name)
}

// methodNameFor builds the exported method name for an operation: the snake
// operation id with the owning tag prefix stripped.
func methodNameFor(oid, tag string) string {
	name := strings.TrimPrefix(oid, tag)
	name = strings.TrimPrefix(name, "_")
	if name == "" {
		name = oid
	}
	return toPascalCase(name)
}

// deriveOperationID synthesizes a snake operation id from method and path for
// operations the document left unnamed: "get /items/{itemId}" becomes
// "get_items_item_id".
func deriveOperationID(method, path string) string {
	p := strings.NewReplacer("/", " ", "{", " ", "}", " ").Replace(path)
	return toSnakeCase(method + " " + p)
}
