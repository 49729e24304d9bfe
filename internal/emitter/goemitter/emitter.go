// Package goemitter writes the generated client package to disk: one source
// file per tag group, the shared type declarations, and the HTTP client
// boilerplate the generated functions call.
package goemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/tools/imports"
)

const fileHeader = "// Code generated by oas2client. DO NOT EDIT.\n\n"

// Options controls how the emitter renders the client package.
type Options struct {
	OutDir      string // required; target directory to write the package
	PackageName string // Go package name; defaults to "client"
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the final resolved package name.
type Result struct {
	PackageName string
	Planned     []PlannedFile
}

// Emit renders the client package from per-tag function sources and the type
// declarations accumulated by the generation pass. Every file goes through a
// goimports pass so the output is immediately compilable.
func Emit(ctx context.Context, tagFiles map[string]string, typeDecls string, opts Options) (*Result, error) {
	_ = ctx
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	pkg := strings.TrimSpace(opts.PackageName)
	if pkg == "" {
		pkg = "client"
	}

	files := map[string][]byte{}

	tags := make([]string, 0, len(tagFiles))
	for tag := range tagFiles {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		rel := tag + ".go"
		src := fileHeader + "package " + pkg + "\n\n" + tagFiles[tag]
		formatted, err := formatSource(rel, []byte(src))
		if err != nil {
			return nil, fmt.Errorf("goemitter: format %s: %w", rel, err)
		}
		files[rel] = formatted
	}

	if strings.TrimSpace(typeDecls) != "" {
		src := fileHeader + "package " + pkg + "\n\n" + typeDecls
		formatted, err := formatSource("types.go", []byte(src))
		if err != nil {
			return nil, fmt.Errorf("goemitter: format types.go: %w", err)
		}
		files["types.go"] = formatted
	}

	clientSrc := fileHeader + renderClientBoilerplate(pkg)
	formatted, err := formatSource("client.go", []byte(clientSrc))
	if err != nil {
		return nil, fmt.Errorf("goemitter: format client.go: %w", err)
	}
	files["client.go"] = formatted

	// Plan in deterministic order.
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}

	return &Result{PackageName: pkg, Planned: planned}, nil
}

// formatSource formats Go source and fixes its import block, so generated
// files never need a manual goimports run.
func formatSource(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, nil)
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: an existing non-empty directory needs --force.
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
