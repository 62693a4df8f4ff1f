package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yousuf/builder-typegen/internal/client"
	"github.com/yousuf/builder-typegen/internal/codegen"
	"github.com/yousuf/builder-typegen/internal/output"
	"github.com/yousuf/builder-typegen/internal/strutil"
	"github.com/yousuf/builder-typegen/internal/tscheck"
)

// NewGenerate builds the generate command.
func NewGenerate(app *App) *cobra.Command {
	g := &Generate{app: app}
	cmd := &cobra.Command{
		Use:   "generate [flags] [MODEL...]",
		Short: "Generate interfaces for all models, or only the named ones",
		Long: `Generate TypeScript Content and Data interfaces for Builder.io models.

Models are read from --models (a JSON or YAML file, "-" for stdin) or fetched
from the upstream MCP server named by --server or modelSource.server. When
MODEL names are given, only those models are generated; every loaded model
still takes part in reference resolution.`,
		RunE: g.Run,
	}

	flags := cmd.Flags()
	flags.StringVar(&g.ModelsFile, "models", "", "Read models from a JSON or YAML file (\"-\" for stdin)")
	flags.StringVar(&g.Server, "server", "", "Upstream MCP server serving the models")
	flags.StringVarP(&g.OutputDir, "output-dir", "o", "", "Directory to write TypeScript files (overrides outputDir)")
	flags.BoolVar(&g.NoPrefix, "no-prefix", false, "Do not prefix interface names with I")
	flags.BoolVar(&g.Clean, "clean", false, "Remove previously generated .ts files first")
	flags.BoolVar(&g.Check, "check", false, "Type-check the output with tsc after writing")
	flags.BoolVar(&g.Stdout, "stdout", false, "Print the generated files instead of writing them")
	return cmd
}

// Generate is the generate command.
type Generate struct {
	ModelsFile string
	Server     string
	OutputDir  string
	NoPrefix   bool
	Clean      bool
	Check      bool
	Stdout     bool

	app *App
}

func (g *Generate) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := g.app.cfg
	log := g.app.log

	if g.Stdout && (g.Clean || g.Check) {
		return fmt.Errorf("--stdout cannot be combined with --clean or --check")
	}

	outputDir := cfg.OutputDir
	if g.OutputDir != "" {
		outputDir = g.OutputDir
	}

	models, err := g.loadModels(cmd)
	if err != nil {
		return err
	}
	log.Debugf("Loaded %d models", len(models))

	selected, err := selectModels(models, args)
	if err != nil {
		return err
	}

	generator := codegen.NewTypeScriptGenerator(codegen.Options{
		OutputDir:       outputDir,
		InterfacePrefix: cfg.UseInterfacePrefix() && !g.NoPrefix,
		ReferenceImport: cfg.ReferenceImport,
		GeneratedImport: cfg.GeneratedImport,
		Concurrency:     cfg.Concurrency,
		Logger:          log,
	})
	generator.SetModelIndex(codegen.RefsFromModels(models))

	batch, err := generator.GenerateAll(ctx, selected)
	if err != nil {
		return err
	}

	if g.Stdout {
		out := cmd.OutOrStdout()
		for _, gi := range batch.Interfaces {
			fmt.Fprintf(out, "// File: %s\n%s\n", filepath.Base(gi.FilePath), gi.Content)
		}
		fmt.Fprintf(out, "// File: %s\n%s", output.IndexFile, batch.Index)
	} else {
		w := output.NewWriter(outputDir, log)
		if g.Clean {
			if err := w.Clean(); err != nil {
				return err
			}
		}
		if _, err := w.WriteBatch(batch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %d interfaces in %s\n", len(batch.Interfaces), outputDir)
	}

	if g.Check {
		if err := runCheck(cmd, outputDir); err != nil {
			return err
		}
	}

	if len(batch.Failures) > 0 {
		for _, f := range batch.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", f)
		}
		return fmt.Errorf("%d of %d models failed to generate", len(batch.Failures), len(selected))
	}
	return nil
}

func (g *Generate) loadModels(cmd *cobra.Command) ([]codegen.Model, error) {
	if g.ModelsFile != "" {
		return readModelsFile(g.ModelsFile, cmd.InOrStdin())
	}

	cfg := g.app.cfg
	server := g.Server
	if server == "" {
		server = cfg.ModelSource.Server
	}
	if server == "" {
		return nil, fmt.Errorf("no model source: pass --models or configure modelSource.server")
	}

	serverCfg, ok := cfg.McpServers[server]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not defined in mcpServers", client.ErrServerNotFound, server)
	}

	c, err := client.NewMcpClient(cmd.Context(), server, serverCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server %q: %w", server, err)
	}
	hub := client.NewMcpClientHub(g.app.log)
	hub.Add(c)
	defer hub.Close()

	return hub.FetchModels(cmd.Context(), server, cfg.ModelsTool())
}

// readModelsFile decodes models from a JSON or YAML file. YAML is converted
// to JSON so both go through the same lenient decoder.
func readModelsFile(path string, stdin io.Reader) ([]codegen.Model, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", path, err)
		}
	}

	models, err := codegen.ParseModels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// selectModels keeps the models named in args, matched by name or by slug.
func selectModels(models []codegen.Model, args []string) ([]codegen.Model, error) {
	if len(args) == 0 {
		return models, nil
	}

	wanted := make(map[string]bool, len(args))
	for _, a := range args {
		wanted[strutil.Slug(a)] = true
	}

	var selected []codegen.Model
	found := make(map[string]bool, len(args))
	for _, m := range models {
		slug := strutil.Slug(m.Name)
		if wanted[slug] {
			selected = append(selected, m)
			found[slug] = true
		}
	}

	var missing []string
	for _, a := range args {
		if !found[strutil.Slug(a)] {
			missing = append(missing, a)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("models not found: %s", strings.Join(missing, ", "))
	}
	return selected, nil
}

func runCheck(cmd *cobra.Command, dir string) error {
	checker, err := tscheck.New()
	if err != nil {
		return err
	}

	result, err := checker.Check(cmd.Context(), dir)
	if err != nil {
		return err
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintln(cmd.ErrOrStderr(), d.String())
	}
	if !result.OK() {
		return fmt.Errorf("type check failed with %d diagnostics", len(result.Diagnostics))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Type check passed for %s\n", dir)
	return nil
}
