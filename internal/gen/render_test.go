package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderFunctionErrorOnly(t *testing.T) {
	t.Parallel()

	src := renderFunction(&FnDescriptor{
		Name:     "Ping",
		Doc:      []string{"Ping checks liveness."},
		URLStmts: []string{`u := "/ping"`},
		Verb:     "get",
	})
	assert.Contains(t, src, "// Ping checks liveness.\n")
	assert.Contains(t, src, "func (c *Client) Ping(ctx context.Context) error {")
	assert.Contains(t, src, "return c.get(ctx, u, nil)")
}

func TestRenderFunctionScalarResponseWithJSONBody(t *testing.T) {
	t.Parallel()

	src := renderFunction(&FnDescriptor{
		Name:         "Exchange",
		BodyKind:     BodyJSON,
		BodyType:     "*ExchangeRequest",
		ResponseType: "string",
		URLStmts:     []string{`u := "/exchange"`},
		Verb:         "post",
	})
	// A scalar response needs a zero-value prefix on the marshal error path
	// and a bare err binding on the call path.
	assert.Contains(t, src, "b, err := json.Marshal(body)")
	assert.Contains(t, src, `return "", err`)
	assert.Contains(t, src, "var out string")
	assert.Contains(t, src, "if err := c.post(ctx, u, bytes.NewReader(b), &out); err != nil {")
	assert.Contains(t, src, "return out, nil")
}

func TestErrorReturnZeroValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":          "",
		"*Item":     "nil, ",
		"[]Item":    "nil, ",
		"map[a]b":   "nil, ",
		"any":       "nil, ",
		"string":    `"", `,
		"int64":     "0, ",
		"float64":   "0, ",
		"bool":      "false, ",
		"ItemsList": "ItemsList{}, ",
	}
	for rt, want := range cases {
		assert.Equal(t, want, errorReturn(&FnDescriptor{ResponseType: rt}), "response %q", rt)
	}
}

func TestRenderFunctionBlankDocLine(t *testing.T) {
	t.Parallel()

	src := renderFunction(&FnDescriptor{
		Name:     "Op",
		Doc:      []string{"Op does things.", "", "Second paragraph."},
		URLStmts: []string{`u := "/op"`},
		Verb:     "get",
	})
	assert.Contains(t, src, "// Op does things.\n//\n// Second paragraph.\n")
}
