package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig, stdout io.Writer) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--verbose",
		"generate",
		"--input", "spec.yaml",
		"--out", "./build",
		"--package", "petstore",
		"--include-tags", "foo,bar",
		"--exclude-tags", "baz",
		"--methods", "GET,post",
		"--path-patterns", "^/items",
		"--query-array-separator", ",",
		"--dry-run",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Out != "./build" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if captured.PackageName != "petstore" {
		t.Errorf("package mismatch: got %q", captured.PackageName)
	}
	if want := []string{"foo", "bar"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", captured.IncludeTags)
	}
	if want := []string{"baz"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", captured.ExcludeTags)
	}
	if want := []string{"get", "post"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods should normalize to lowercase: got %v", captured.Methods)
	}
	if want := []string{"^/items"}; !equalStringSlices(captured.PathPatterns, want) {
		t.Errorf("path patterns mismatch: got %v", captured.PathPatterns)
	}
	if captured.QueryArraySep != "," {
		t.Errorf("query array separator mismatch: got %q", captured.QueryArraySep)
	}
	if !captured.DryRun {
		t.Errorf("expected dry-run true")
	}
	if !captured.Force {
		t.Errorf("expected force true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
out: from-config
package: cfgpkg
includeTags:
  - cfgFoo
excludeTags:
  - cfgBar
queryArraySeparator: ","
dryRun: true
force: false
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig, stdout io.Writer) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "flag-spec.yaml",
		"--include-tags", "flagTag",
		"--dry-run=false",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "flag-spec.yaml" {
		t.Errorf("input: want %q got %q", "flag-spec.yaml", captured.Input)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: want from-config got %q", captured.Out)
	}
	if captured.PackageName != "cfgpkg" {
		t.Errorf("package: want cfgpkg got %q", captured.PackageName)
	}
	if want := []string{"flagTag"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags: want %v got %v", want, captured.IncludeTags)
	}
	if want := []string{"cfgBar"}; !equalStringSlices(captured.ExcludeTags, want) {
		t.Errorf("exclude tags: want %v got %v", want, captured.ExcludeTags)
	}
	if captured.QueryArraySep != "," {
		t.Errorf("query array separator: got %q", captured.QueryArraySep)
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing input",
			args: []string{"generate", "--out", "./build"},
			want: "--input is required",
		},
		{
			name: "missing out",
			args: []string{"generate", "--input", "spec.yaml"},
			want: "--out is required",
		},
		{
			name: "bad method",
			args: []string{"generate", "--input", "spec.yaml", "--out", "./build", "--methods", "fetch"},
			want: "unsupported --methods",
		},
		{
			name: "overlapping tags",
			args: []string{"generate", "--input", "spec.yaml", "--out", "./build",
				"--include-tags", "a,b", "--exclude-tags", "b"},
			want: "both included and excluded",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tc.args)

			err := root.Execute()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestGenerateUnknownFlag(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--nope"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error for unknown flag")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGenerateConfigFileUnreadable(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"generate", "--input", "spec.yaml", "--out", "./build",
	})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error for missing config file")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

const pipelineSpec = `openapi: 3.0.3
info:
  title: Items API
  version: "1.0.0"
paths:
  /items/{itemId}:
    get:
      operationId: items_get_item
      summary: Get a single item
      tags: [items]
      parameters:
        - name: itemId
          in: path
          required: true
          schema: {type: string}
        - name: type
          in: query
          schema: {type: string}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Item"}
components:
  schemas:
    Item:
      type: object
      required: [id]
      properties:
        id: {type: string}
        name: {type: string}
`

func writePipelineSpec(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.yaml")
	if err := os.WriteFile(path, []byte(pipelineSpec), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func TestGeneratePipelineWritesClientPackage(t *testing.T) {
	specPath := writePipelineSpec(t)
	outDir := filepath.Join(t.TempDir(), "client")

	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--input", specPath, "--out", outDir})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	items, err := os.ReadFile(filepath.Join(outDir, "items.go"))
	if err != nil {
		t.Fatalf("read items.go: %v", err)
	}
	src := string(items)
	if !strings.Contains(src, "func (c *Client) GetItem(ctx context.Context, itemId string, type_ string) (*Item, error)") {
		t.Fatalf("unexpected generated signature:\n%s", src)
	}
	if !strings.Contains(src, `u := fmt.Sprintf("/items/%s", url.PathEscape(itemId))`) {
		t.Fatalf("missing escaped path build:\n%s", src)
	}

	types, err := os.ReadFile(filepath.Join(outDir, "types.go"))
	if err != nil {
		t.Fatalf("read types.go: %v", err)
	}
	if !strings.Contains(string(types), "type Item struct {") {
		t.Fatalf("missing Item declaration:\n%s", types)
	}

	if _, err := os.Stat(filepath.Join(outDir, "client.go")); err != nil {
		t.Fatalf("client.go should exist: %v", err)
	}

	if !strings.Contains(stdout.String(), "generated 3 files") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestGeneratePipelineDryRun(t *testing.T) {
	specPath := writePipelineSpec(t)
	outDir := filepath.Join(t.TempDir(), "client")

	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--input", specPath, "--out", outDir, "--dry-run"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"client.go", "items.go", "types.go"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dry-run output should list %s: %q", want, out)
		}
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the output directory")
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
