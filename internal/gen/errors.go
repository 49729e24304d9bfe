package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Every generation error is fatal to the run: producing malformed client code
// silently is worse than failing on the first schema authoring mistake. The
// sentinel values below support errors.Is checks without type assertions; the
// concrete types carry the offending identifiers for the driver's report.
var (
	// ErrTagCardinality indicates an operation with zero or multiple tags.
	ErrTagCardinality = errors.New("tag cardinality error")

	// ErrUnknownParameterReference indicates a parameter $ref that does not
	// resolve in the shared parameter table.
	ErrUnknownParameterReference = errors.New("unknown parameter reference")

	// ErrUnsupportedQuerySemantics indicates an allowEmptyValue query
	// parameter or a content type carrying encoding metadata.
	ErrUnsupportedQuerySemantics = errors.New("unsupported query semantics")

	// ErrMalformedTemplate indicates an unbalanced or empty path placeholder.
	ErrMalformedTemplate = errors.New("malformed path template")

	// ErrUnrepresentableResponse indicates no response content-type
	// precedence rule matched.
	ErrUnrepresentableResponse = errors.New("unrepresentable response")

	// ErrMissingAuthenticationContext indicates a verb/body combination with
	// no body-attachment strategy outside the exempt table.
	ErrMissingAuthenticationContext = errors.New("missing authentication context")

	// ErrDanglingSchemaReference indicates a schema $ref that cannot be
	// resolved against the document's named schemas.
	ErrDanglingSchemaReference = errors.New("dangling schema reference")
)

// TagCardinalityError reports an operation without exactly one tag. Output
// grouping is tag-keyed, so ambiguity here would silently drop or duplicate
// generated functions.
type TagCardinalityError struct {
	OperationID string
	Count       int
}

func (e *TagCardinalityError) Error() string {
	return fmt.Sprintf("operation %q has %d tags, exactly 1 required", e.OperationID, e.Count)
}

func (e *TagCardinalityError) Is(target error) bool { return target == ErrTagCardinality }

// UnknownParameterReferenceError reports a named parameter reference missing
// from the shared components.parameters table.
type UnknownParameterReferenceError struct {
	Ref string
}

func (e *UnknownParameterReferenceError) Error() string {
	return fmt.Sprintf("parameter reference %q not found in shared parameter table", e.Ref)
}

func (e *UnknownParameterReferenceError) Is(target error) bool {
	return target == ErrUnknownParameterReference
}

// UnsupportedQuerySemanticsError reports query or media constructs the
// generated representation cannot express.
type UnsupportedQuerySemanticsError struct {
	Name   string // parameter name or content type
	Reason string
}

func (e *UnsupportedQuerySemanticsError) Error() string {
	return fmt.Sprintf("unsupported semantics for %q: %s", e.Name, e.Reason)
}

func (e *UnsupportedQuerySemanticsError) Is(target error) bool {
	return target == ErrUnsupportedQuerySemantics
}

// MalformedTemplateError reports an invalid path template.
type MalformedTemplateError struct {
	Path   string
	Reason string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed path template %q: %s", e.Path, e.Reason)
}

func (e *MalformedTemplateError) Is(target error) bool { return target == ErrMalformedTemplate }

// UnrepresentableResponseError reports a response whose declared content
// matches no precedence rule.
type UnrepresentableResponseError struct {
	OperationID  string
	ContentTypes []string
}

func (e *UnrepresentableResponseError) Error() string {
	return fmt.Sprintf("operation %q: no response rule matches content types [%s]",
		e.OperationID, strings.Join(e.ContentTypes, ", "))
}

func (e *UnrepresentableResponseError) Is(target error) bool {
	return target == ErrUnrepresentableResponse
}

// MissingAuthenticationContextError reports a verb/body combination with no
// request strategy: an unroutable verb, or a fetch verb carrying a body it
// cannot attach.
type MissingAuthenticationContextError struct {
	OperationID string
	Method      string
}

func (e *MissingAuthenticationContextError) Error() string {
	return fmt.Sprintf("operation %q (%s): no request strategy for this verb/body combination",
		e.OperationID, strings.ToUpper(e.Method))
}

func (e *MissingAuthenticationContextError) Is(target error) bool {
	return target == ErrMissingAuthenticationContext
}

// DanglingSchemaReferenceError reports a schema $ref with no matching named
// schema.
type DanglingSchemaReferenceError struct {
	Ref string
}

func (e *DanglingSchemaReferenceError) Error() string {
	return fmt.Sprintf("schema reference %q does not resolve", e.Ref)
}

func (e *DanglingSchemaReferenceError) Is(target error) bool {
	return target == ErrDanglingSchemaReference
}
