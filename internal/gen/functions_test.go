package gen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkforge/oas2client/internal/spec"
)

func itemModel() *spec.ServiceModel {
	return &spec.ServiceModel{
		Schemas: map[string]spec.Schema{
			"Item": {Name: "Item", Type: "object", Properties: map[string]*spec.SchemaOrRef{
				"id":   strType(),
				"name": strType(),
			}, Required: []string{"id"}},
		},
		Endpoints: []spec.EndpointModel{{
			ID:          "get /items/{itemId}",
			OperationID: "items_get_item",
			Method:      spec.GET,
			Path:        "/items/{itemId}",
			Summary:     "Get a single item",
			Tags:        []string{"items"},
			Parameters: []spec.ParameterModel{
				{Name: "itemId", In: "path", Required: true, Schema: strType()},
				{Name: "type", In: "query", Schema: strType()},
				{Name: "ids", In: "query", Schema: inline(&spec.Schema{Type: "array", Items: strType()})},
			},
			Responses: []spec.ResponseModel{{
				Status:  "200",
				Content: []spec.Media{{Mime: "application/json", Schema: refTo("Item")}},
			}},
		}},
	}
}

func generateOne(t *testing.T, sm *spec.ServiceModel, opts Options) map[string]string {
	t.Helper()
	ts := NewTypeSpace(sm)
	files, err := GenerateFiles(sm, ts, opts)
	require.NoError(t, err)
	return files
}

func TestGenerateFilesItemScenario(t *testing.T) {
	t.Parallel()

	sm := itemModel()
	files := generateOne(t, sm, Options{})
	require.Contains(t, files, "items")
	src := files["items"]

	// Signature keeps declaration order; reserved names are escaped.
	assert.Contains(t, src,
		"func (c *Client) GetItem(ctx context.Context, itemId string, type_ string, ids []string) (*Item, error) {")

	// Path values go through the universal escaping rule.
	assert.Contains(t, src, `u := fmt.Sprintf("/items/%s", url.PathEscape(itemId))`)

	// Query keys stay raw and come out in lexicographic order even though
	// the document declared type before ids.
	iIds := strings.Index(src, `q = append(q, "ids="+strings.Join(ids, " "))`)
	iType := strings.Index(src, `q = append(q, "type="+type_)`)
	require.True(t, iIds >= 0 && iType >= 0, "both query appends must be present:\n%s", src)
	assert.Less(t, iIds, iType)

	// Optional query parameters are guarded.
	assert.Contains(t, src, "if len(ids) > 0 {")
	assert.Contains(t, src, `if type_ != "" {`)

	// GET call decodes into the named response type.
	assert.Contains(t, src, "var out Item")
	assert.Contains(t, src, "if err := c.get(ctx, u, &out); err != nil {")
	assert.Contains(t, src, "return &out, nil")

	// Structured doc comment.
	assert.Contains(t, src, "// GetItem Get a single item.")
	assert.Contains(t, src, "// This function performs a `GET` to the `/items/{itemId}` endpoint.")
	assert.Contains(t, src, "//   - itemId: string")
	assert.Contains(t, src, "//   - type_: string")
}

func TestGenerateFilesIsDeterministic(t *testing.T) {
	t.Parallel()

	sm := itemModel()
	sm.Endpoints = append(sm.Endpoints, spec.EndpointModel{
		OperationID: "items_list",
		Method:      spec.GET,
		Path:        "/items",
		Tags:        []string{"items"},
		Responses: []spec.ResponseModel{{
			Status: "200",
			Content: []spec.Media{{Mime: "application/json",
				Schema: inline(&spec.Schema{Type: "array", Items: refTo("Item")})}},
		}},
	})

	tsA := NewTypeSpace(sm)
	filesA, err := GenerateFiles(sm, tsA, Options{})
	require.NoError(t, err)
	tsB := NewTypeSpace(sm)
	filesB, err := GenerateFiles(sm, tsB, Options{})
	require.NoError(t, err)

	assert.Equal(t, filesA, filesB)
	assert.Equal(t, tsA.Decls(), tsB.Decls())
}

func TestGenerateFilesTagCardinality(t *testing.T) {
	t.Parallel()

	for _, tags := range [][]string{nil, {"a", "b"}} {
		sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
			OperationID: "things_list",
			Method:      spec.GET,
			Path:        "/things",
			Tags:        tags,
		}}}
		ts := NewTypeSpace(sm)
		_, err := GenerateFiles(sm, ts, Options{})
		require.Error(t, err, "tags %v", tags)
		assert.True(t, errors.Is(err, ErrTagCardinality))
		// The wrap names the operation id as well as method and path.
		assert.Contains(t, err.Error(), "operation things_list (GET /things)")
	}
}

func TestGetWithRequestBodyIsRejected(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		OperationID: "things_search",
		Method:      spec.GET,
		Path:        "/things/search",
		Tags:        []string{"things"},
		RequestBody: &spec.RequestBodyModel{Content: []spec.Media{{
			Mime: "application/json",
			Schema: inline(&spec.Schema{Type: "object", Properties: map[string]*spec.SchemaOrRef{
				"query": strType(),
			}}),
		}}},
	}}}
	ts := NewTypeSpace(sm)
	_, err := GenerateFiles(sm, ts, Options{})
	require.Error(t, err, "a fetch verb cannot attach a request body")
	assert.True(t, errors.Is(err, ErrMissingAuthenticationContext))
	assert.Contains(t, err.Error(), "things_search")
}

func TestResponsePrecedence(t *testing.T) {
	t.Parallel()

	base := func(content []spec.Media) *spec.ServiceModel {
		return &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
			OperationID: "things_get",
			Method:      spec.GET,
			Path:        "/things",
			Tags:        []string{"things"},
			Responses:   []spec.ResponseModel{{Status: "200", Content: content}},
		}}}
	}

	t.Run("no content returns no value", func(t *testing.T) {
		t.Parallel()
		files := generateOne(t, base(nil), Options{})
		assert.Contains(t, files["things"], ") error {")
		assert.Contains(t, files["things"], "return c.get(ctx, u, nil)")
	})

	t.Run("json wins over text", func(t *testing.T) {
		t.Parallel()
		sm := base([]spec.Media{
			{Mime: "text/plain", Schema: strType()},
			{Mime: "application/json", Schema: inline(&spec.Schema{
				Type: "object", Properties: map[string]*spec.SchemaOrRef{"id": strType()},
			})},
		})
		files := generateOne(t, sm, Options{})
		assert.Contains(t, files["things"], "(*ThingsGetResponse, error) {")
	})

	t.Run("text/plain is anonymous", func(t *testing.T) {
		t.Parallel()
		files := generateOne(t, base([]spec.Media{{Mime: "text/plain", Schema: strType()}}), Options{})
		assert.Contains(t, files["things"], ") (string, error) {")
	})

	t.Run("vendor octet stream is anonymous", func(t *testing.T) {
		t.Parallel()
		files := generateOne(t, base([]spec.Media{{
			Mime:   "application/vnd.sample.octet-stream",
			Schema: inline(&spec.Schema{Type: "string", Format: "binary"}),
		}}), Options{})
		assert.Contains(t, files["things"], ") ([]byte, error) {")
	})

	t.Run("scim json is named", func(t *testing.T) {
		t.Parallel()
		files := generateOne(t, base([]spec.Media{{Mime: "application/scim+json", Schema: inline(&spec.Schema{
			Type: "object", Properties: map[string]*spec.SchemaOrRef{"id": strType()},
		})}}), Options{})
		assert.Contains(t, files["things"], "(*ThingsGetResponse, error) {")
	})

	t.Run("encoding metadata is rejected", func(t *testing.T) {
		t.Parallel()
		sm := base([]spec.Media{{Mime: "application/json", Schema: strType(), HasEncoding: true}})
		ts := NewTypeSpace(sm)
		_, err := GenerateFiles(sm, ts, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedQuerySemantics))
	})

	t.Run("unknown content type is unrepresentable", func(t *testing.T) {
		t.Parallel()
		sm := base([]spec.Media{{Mime: "image/png", Schema: strType()}})
		ts := NewTypeSpace(sm)
		_, err := GenerateFiles(sm, ts, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnrepresentableResponse))

		var ure *UnrepresentableResponseError
		require.True(t, errors.As(err, &ure))
		assert.Equal(t, []string{"image/png"}, ure.ContentTypes)
	})
}

func TestBodyClassification(t *testing.T) {
	t.Parallel()

	base := func(rb *spec.RequestBodyModel) *spec.ServiceModel {
		return &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
			OperationID: "widgets_create",
			Method:      spec.POST,
			Path:        "/widgets",
			Tags:        []string{"widgets"},
			RequestBody: rb,
		}}}
	}

	t.Run("json body gets a named request type", func(t *testing.T) {
		t.Parallel()
		sm := base(&spec.RequestBodyModel{Content: []spec.Media{{
			Mime: "application/json",
			Schema: inline(&spec.Schema{Type: "object", Properties: map[string]*spec.SchemaOrRef{
				"name": strType(),
			}}),
		}}})
		files := generateOne(t, sm, Options{})
		src := files["widgets"]
		assert.Contains(t, src, "body *WidgetsCreateRequest) error {")
		assert.Contains(t, src, "b, err := json.Marshal(body)")
		assert.Contains(t, src, "return c.post(ctx, u, bytes.NewReader(b), nil)")
	})

	t.Run("octet stream body is a reader", func(t *testing.T) {
		t.Parallel()
		sm := base(&spec.RequestBodyModel{Content: []spec.Media{{
			Mime:   "application/octet-stream",
			Schema: inline(&spec.Schema{Type: "string", Format: "binary"}),
		}}})
		files := generateOne(t, sm, Options{})
		src := files["widgets"]
		assert.Contains(t, src, "body io.Reader) error {")
		assert.Contains(t, src, "return c.post(ctx, u, body, nil)")
	})

	t.Run("text body is a plain string", func(t *testing.T) {
		t.Parallel()
		sm := base(&spec.RequestBodyModel{Content: []spec.Media{{
			Mime:   "text/plain",
			Schema: strType(),
		}}})
		files := generateOne(t, sm, Options{})
		src := files["widgets"]
		assert.Contains(t, src, "body string) error {")
		assert.Contains(t, src, "return c.post(ctx, u, strings.NewReader(body), nil)")
	})
}

func TestVerbStrategyRejectsUnroutableMethods(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		OperationID: "things_probe",
		Method:      spec.HEAD,
		Path:        "/things",
		Tags:        []string{"things"},
	}}}
	ts := NewTypeSpace(sm)
	_, err := GenerateFiles(sm, ts, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAuthenticationContext))

	var mae *MissingAuthenticationContextError
	require.True(t, errors.As(err, &mae))
	assert.Equal(t, "things_probe", mae.OperationID)
}

func TestTokenFetchOperationUsesUnauthenticatedMediaPath(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		OperationID: "apps_create_installation_access_token",
		Method:      spec.POST,
		Path:        "/app/installations/{installationId}/access_tokens",
		Tags:        []string{"apps"},
		Parameters: []spec.ParameterModel{
			{Name: "installationId", In: "path", Required: true,
				Schema: inline(&spec.Schema{Type: "integer"})},
		},
		RequestBody: &spec.RequestBodyModel{Content: []spec.Media{{
			Mime: "application/json",
			Schema: inline(&spec.Schema{Type: "object", Properties: map[string]*spec.SchemaOrRef{
				"repositories": inline(&spec.Schema{Type: "array", Items: strType()}),
			}}),
		}}},
		Responses: []spec.ResponseModel{{
			Status: "201",
			Content: []spec.Media{{Mime: "application/json",
				Schema: inline(&spec.Schema{Type: "object", Properties: map[string]*spec.SchemaOrRef{
					"token": strType(),
				}})}},
		}},
	}}}

	files := generateOne(t, sm, Options{})
	src := files["apps"]
	assert.Contains(t, src, "c.postMedia(ctx, u, bytes.NewReader(b), mediaJSON, authJWT, &out)")
}

func TestAuthExemptOverride(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		OperationID: "custom_token_op",
		Method:      spec.POST,
		Path:        "/token",
		Tags:        []string{"custom"},
	}}}
	files := generateOne(t, sm, Options{AuthExempt: map[string]bool{"custom_token_op": true}})
	assert.Contains(t, files["custom"], "c.postMedia(ctx, u, nil, mediaJSON, authJWT, nil)")
}

func TestQueryArraySeparatorOption(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		OperationID: "things_list",
		Method:      spec.GET,
		Path:        "/things",
		Tags:        []string{"things"},
		Parameters: []spec.ParameterModel{
			{Name: "labels", In: "query", Schema: inline(&spec.Schema{Type: "array", Items: strType()})},
		},
	}}}
	files := generateOne(t, sm, Options{QueryArraySeparator: ","})
	assert.Contains(t, files["things"], `strings.Join(labels, ",")`)
}

func TestDerivedOperationIDWhenUnnamed(t *testing.T) {
	t.Parallel()

	sm := &spec.ServiceModel{Endpoints: []spec.EndpointModel{{
		Method: spec.GET,
		Path:   "/items/{itemId}",
		Tags:   []string{"items"},
		Parameters: []spec.ParameterModel{
			{Name: "itemId", In: "path", Required: true, Schema: strType()},
		},
	}}}
	files := generateOne(t, sm, Options{})
	// "get /items/{itemId}" derives get_items_item_id; the tag prefix does
	// not match so the full name survives.
	assert.Contains(t, files["items"], "func (c *Client) GetItemsItemId(ctx context.Context, itemId string) error {")
}
