package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sdkforge/oas2client/internal/emitter/goemitter"
	"github.com/sdkforge/oas2client/internal/gen"
	genspec "github.com/sdkforge/oas2client/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input          string
	Out            string
	PackageName    string
	IncludeTags    []string
	ExcludeTags    []string
	Methods        []string
	PathPatterns   []string
	QueryArraySep  string
	ConfigPath     string
	DryRun         bool
	Force          bool
	Verbose        bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{PackageName: "client", QueryArraySep: " "}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a typed Go client package from an OpenAPI/Swagger document",
		Long: "Generate a typed Go client package from an OpenAPI/Swagger document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  oas2client generate --input spec.yaml --out ./client
  oas2client --config config.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory for the generated package")
	flags.String("package", "", "Generated Go package name; defaults to client")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("path-patterns", nil, "Only include operations whose path matches these regular expressions")
	flags.String("query-array-separator", "", "Separator joining multi-value string query parameters; defaults to a space")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

type generateFileConfig struct {
	Input               string   `yaml:"input" json:"input"`
	Out                 string   `yaml:"out" json:"out"`
	Package             string   `yaml:"package" json:"package"`
	IncludeTags         []string `yaml:"includeTags" json:"includeTags"`
	ExcludeTags         []string `yaml:"excludeTags" json:"excludeTags"`
	Methods             []string `yaml:"methods" json:"methods"`
	PathPatterns        []string `yaml:"pathPatterns" json:"pathPatterns"`
	QueryArraySeparator *string  `yaml:"queryArraySeparator" json:"queryArraySeparator"`
	DryRun              *bool    `yaml:"dryRun" json:"dryRun"`
	Force               *bool    `yaml:"force" json:"force"`
	Verbose             *bool    `yaml:"verbose" json:"verbose"`
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return newUsageError("config: read %s: %v", path, err)
	}
	var fc generateFileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return newUsageError("config: parse %s: %v", path, err)
	}
	if fc.Input != "" {
		cfg.Input = fc.Input
	}
	if fc.Out != "" {
		cfg.Out = fc.Out
	}
	if fc.Package != "" {
		cfg.PackageName = fc.Package
	}
	if len(fc.IncludeTags) > 0 {
		cfg.IncludeTags = fc.IncludeTags
	}
	if len(fc.ExcludeTags) > 0 {
		cfg.ExcludeTags = fc.ExcludeTags
	}
	if len(fc.Methods) > 0 {
		cfg.Methods = fc.Methods
	}
	if len(fc.PathPatterns) > 0 {
		cfg.PathPatterns = fc.PathPatterns
	}
	if fc.QueryArraySeparator != nil {
		cfg.QueryArraySep = *fc.QueryArraySeparator
	}
	if fc.DryRun != nil {
		cfg.DryRun = *fc.DryRun
	}
	if fc.Force != nil {
		cfg.Force = *fc.Force
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("package") {
		value, err := flags.GetString("package")
		if err != nil {
			return err
		}
		cfg.PackageName = strings.TrimSpace(value)
	}
	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeList(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeList(value)
	}
	if flags.Changed("methods") {
		value, err := flags.GetStringSlice("methods")
		if err != nil {
			return err
		}
		cfg.Methods = sanitizeList(value)
	}
	if flags.Changed("path-patterns") {
		value, err := flags.GetStringSlice("path-patterns")
		if err != nil {
			return err
		}
		cfg.PathPatterns = sanitizeList(value)
	}
	if flags.Changed("query-array-separator") {
		value, err := flags.GetString("query-array-separator")
		if err != nil {
			return err
		}
		cfg.QueryArraySep = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.PackageName = strings.TrimSpace(c.PackageName)
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	c.Methods = sanitizeList(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.PathPatterns = sanitizeList(c.PathPatterns)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}
	if c.Out == "" {
		return newUsageError("generate: --out is required (set via flag or config file)")
	}
	if c.PackageName == "" {
		c.PackageName = "client"
	}

	for _, m := range c.Methods {
		switch genspec.HttpMethod(m) {
		case genspec.GET, genspec.PUT, genspec.POST, genspec.DELETE,
			genspec.OPTIONS, genspec.HEAD, genspec.PATCH, genspec.TRACE:
		default:
			return newUsageError("generate: unsupported --methods value %q", m)
		}
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError("generate: tags cannot be both included and excluded: %s", strings.Join(overlap, ", "))
	}
	return nil
}

func sanitizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range b {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// runGenerate is the full pipeline: load the document, normalize it into the
// internal model, synthesize the per-tag function sources, and emit the
// package.
func runGenerate(ctx context.Context, cfg *GenerateConfig, stdout io.Writer) error {
	doc, err := genspec.Load(ctx, cfg.Input)
	if err != nil {
		return err
	}

	var buildOpts []genspec.BuildOption
	if len(cfg.IncludeTags) > 0 {
		buildOpts = append(buildOpts, genspec.WithIncludeTags(cfg.IncludeTags))
	}
	if len(cfg.ExcludeTags) > 0 {
		buildOpts = append(buildOpts, genspec.WithExcludeTags(cfg.ExcludeTags))
	}
	if len(cfg.Methods) > 0 {
		methods := make([]genspec.HttpMethod, 0, len(cfg.Methods))
		for _, m := range cfg.Methods {
			methods = append(methods, genspec.HttpMethod(m))
		}
		buildOpts = append(buildOpts, genspec.WithMethods(methods))
	}
	if len(cfg.PathPatterns) > 0 {
		buildOpts = append(buildOpts, genspec.WithPathPatterns(cfg.PathPatterns))
	}

	sm, err := genspec.BuildServiceModel(ctx, doc, buildOpts...)
	if err != nil {
		return err
	}

	ts := gen.NewTypeSpace(sm)
	tagFiles, err := gen.GenerateFiles(sm, ts, gen.Options{QueryArraySeparator: cfg.QueryArraySep})
	if err != nil {
		return err
	}

	res, err := goemitter.Emit(ctx, tagFiles, ts.Decls(), goemitter.Options{
		OutDir:      cfg.Out,
		PackageName: cfg.PackageName,
		Force:       cfg.Force,
		DryRun:      cfg.DryRun,
		Verbose:     cfg.Verbose,
	})
	if err != nil {
		return err
	}

	if cfg.DryRun || cfg.Verbose {
		for _, f := range res.Planned {
			fmt.Fprintf(stdout, "%s (%d bytes)\n", f.RelPath, f.Size)
		}
	}
	fmt.Fprintf(stdout, "generated %d files in %s\n", len(res.Planned), cfg.Out)
	return nil
}
