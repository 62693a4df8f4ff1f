package tscheck

import (
	"bytes"
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var (
	globalTscPath string
	tscInitOnce   sync.Once
	tscInitError  error
)

// ErrTscNotFound is returned when neither tsc nor npx is on the PATH.
var ErrTscNotFound = errors.New("tsc executable not found")

// embeddedBuilderTypes declares BuilderReference for the generated imports.
//
//go:embed builder-types.d.ts
var embeddedBuilderTypes string

// Diagnostic is one compiler message.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s(%d,%d): %s %s: %s", d.File, d.Line, d.Column, d.Severity, d.Code, d.Message)
}

// Result is the outcome of checking a directory.
type Result struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Output      string       `json:"-"`
}

// OK reports whether the compiler found no errors.
func (r *Result) OK() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == "error" {
			return false
		}
	}
	return true
}

// Checker type-checks generated TypeScript with the TypeScript compiler.
type Checker struct {
	tscPath string
}

// Initialize finds and caches the tsc executable path
func Initialize() error {
	tscInitOnce.Do(func() {
		globalTscPath, tscInitError = findTsc()
	})
	return tscInitError
}

// New creates a checker using the cached tsc path.
func New() (*Checker, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	return &Checker{tscPath: globalTscPath}, nil
}

// NewWithPath creates a checker for an explicit tsc (or npx) executable.
func NewWithPath(path string) *Checker {
	return &Checker{tscPath: path}
}

// findTsc attempts to locate the tsc executable
func findTsc() (string, error) {
	if path, err := exec.LookPath("tsc"); err == nil {
		return path, nil
	}
	if _, err := exec.LookPath("npx"); err == nil {
		return "npx", nil
	}

	matches, _ := filepath.Glob(filepath.Join(os.Getenv("HOME"), ".nvm", "versions", "node", "*", "bin", "tsc"))
	if len(matches) > 0 {
		return matches[len(matches)-1], nil
	}

	return "", ErrTscNotFound
}

type tsconfig struct {
	CompilerOptions compilerOptions `json:"compilerOptions"`
	Include         []string        `json:"include"`
}

type compilerOptions struct {
	Strict           bool                `json:"strict"`
	NoEmit           bool                `json:"noEmit"`
	SkipLibCheck     bool                `json:"skipLibCheck"`
	Target           string              `json:"target"`
	Module           string              `json:"module"`
	ModuleResolution string              `json:"moduleResolution"`
	BaseURL          string              `json:"baseUrl"`
	Paths            map[string][]string `json:"paths"`
}

// Check compiles every .ts file in dir with --noEmit. The directory is
// expected to contain an index.ts barrel so that "@/types/generated"
// resolves. A compile with diagnostics is not an error.
func (c *Checker) Check(ctx context.Context, dir string) (*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	workID, err := generateWorkID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate work ID: %w", err)
	}

	workDir := filepath.Join(os.TempDir(), "builder-typegen-check-"+workID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := os.WriteFile(filepath.Join(workDir, "builder-types.d.ts"), []byte(embeddedBuilderTypes), 0644); err != nil {
		return nil, fmt.Errorf("failed to write type stubs: %w", err)
	}

	configPath := filepath.Join(workDir, "tsconfig.json")
	config, err := json.MarshalIndent(newTsconfig(workDir, absDir), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tsconfig: %w", err)
	}
	if err := os.WriteFile(configPath, config, 0644); err != nil {
		return nil, fmt.Errorf("failed to write tsconfig: %w", err)
	}

	var cmd *exec.Cmd
	if c.tscPath == "npx" {
		cmd = exec.CommandContext(ctx, "npx", "-y", "-p", "typescript", "tsc", "-p", configPath, "--pretty", "false")
	} else {
		cmd = exec.CommandContext(ctx, c.tscPath, "-p", configPath, "--pretty", "false")
	}

	var out bytes.Buffer
	cmd.Dir = workDir
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	result := &Result{
		Diagnostics: ParseDiagnostics(out.String()),
		Output:      out.String(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || len(result.Diagnostics) == 0 {
			return nil, fmt.Errorf("tsc failed: %w\nOutput: %s", runErr, out.String())
		}
	}

	return result, nil
}

func newTsconfig(workDir, dir string) tsconfig {
	return tsconfig{
		CompilerOptions: compilerOptions{
			Strict:           true,
			NoEmit:           true,
			SkipLibCheck:     true,
			Target:           "es2020",
			Module:           "esnext",
			ModuleResolution: "node",
			BaseURL:          workDir,
			Paths: map[string][]string{
				"@/types":           {"./builder-types"},
				"@/types/generated": {filepath.Join(dir, "index")},
			},
		},
		Include: []string{
			filepath.Join(dir, "*.ts"),
			"builder-types.d.ts",
		},
	}
}

var diagnosticLine = regexp.MustCompile(`(?m)^(.+?)\((\d+),(\d+)\): (error|warning|message) (TS\d+): (.*)$`)

// ParseDiagnostics extracts compiler messages printed with --pretty false.
func ParseDiagnostics(output string) []Diagnostic {
	var diags []Diagnostic
	for _, m := range diagnosticLine.FindAllStringSubmatch(output, -1) {
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, Diagnostic{
			File:     m[1],
			Line:     line,
			Column:   col,
			Severity: m[4],
			Code:     m[5],
			Message:  m[6],
		})
	}
	return diags
}

// generateWorkID creates a unique identifier for a work directory
func generateWorkID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
