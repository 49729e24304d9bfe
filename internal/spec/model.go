package spec

// Internal Model (IM) definitions consumed by the generator and emitter.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	PUT     HttpMethod = "put"
	POST    HttpMethod = "post"
	DELETE  HttpMethod = "delete"
	OPTIONS HttpMethod = "options"
	HEAD    HttpMethod = "head"
	PATCH   HttpMethod = "patch"
	TRACE   HttpMethod = "trace"
)

// CanonicalMethodOrder is the fixed order in which operations under one path
// are visited, regardless of how the source document orders them. Regenerating
// from an unchanged document must produce byte-identical output, so this
// order never changes.
var CanonicalMethodOrder = []HttpMethod{GET, PUT, POST, DELETE, OPTIONS, HEAD, PATCH, TRACE}

type ServiceModel struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
	Tags        []string
	Endpoints   []EndpointModel
	Schemas     map[string]Schema // components.schemas by name
	// Parameters is the shared named-parameter table from
	// components.parameters. Operation parameters may reference into it.
	Parameters map[string]ParameterModel
}

type Server struct {
	URL         string
	Description string
}

type EndpointModel struct {
	ID              string // method+path
	OperationID     string // raw operationId from the document; may be empty
	Method          HttpMethod
	Path            string
	Summary         string
	Description     string
	ExternalDocsURL string
	Tags            []string
	Parameters      []ParameterModel
	RequestBody     *RequestBodyModel
	Responses       []ResponseModel
}

type ParameterModel struct {
	// Ref holds the table key when the parameter was declared as a $ref
	// into components.parameters; empty for inline parameters.
	Ref             string
	Name            string
	In              string // path|query|header|cookie
	Description     string
	Required        bool
	Style           string
	Explode         bool
	AllowEmptyValue bool
	Schema          *SchemaOrRef
}

type RequestBodyModel struct {
	Content  []Media
	Required bool
}

type ResponseModel struct {
	Status      string // 200, 4xx, default
	Description string
	Content     []Media
}

type Media struct {
	Mime   string
	Schema *SchemaOrRef
	// HasEncoding records whether the media type declared encoding metadata.
	// Encoding transforms are not modeled; the generator rejects them.
	HasEncoding bool
	// Example holds a single example value if available. It may be nil.
	Example any
}

type Schema struct {
	Name        string
	Type        string
	Properties  map[string]*SchemaOrRef
	Required    []string
	Items       *SchemaOrRef
	AllOf       []*SchemaOrRef
	AnyOf       []*SchemaOrRef
	OneOf       []*SchemaOrRef
	Description string
	Enum        []any
	Format      string
	Nullable    bool
	Example     any
}

type SchemaRef struct{ Ref string }

type SchemaOrRef struct {
	Schema *Schema
	Ref    *SchemaRef
}
