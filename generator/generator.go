// Package generator writes finalized reports to disk as HTML and JSON
package generator

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testreport/types"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

const templateName = "report.html.tmpl"

// Options select which artifacts are written and where
type Options struct {
	ReportDir      string
	ReportFilename string // without extension
	ReportTitle    string
	SaveHTML       bool
	SaveJSON       bool
}

// Artifacts are the paths of the written files; empty when not written
type Artifacts struct {
	HTML string
	JSON string
}

// Paths returns the written paths, HTML first
func (a Artifacts) Paths() []string {
	var paths []string
	for _, p := range []string{a.HTML, a.JSON} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// FileGenerator renders reports into files
type FileGenerator struct {
	log  log.Logger
	tmpl *template.Template
}

// NewFileGenerator parses the embedded report template
func NewFileGenerator(logger log.Logger) (*FileGenerator, error) {
	tmpl, err := template.New(templateName).Funcs(templateFuncs()).ParseFS(templateFS, "templates/"+templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &FileGenerator{log: logger, tmpl: tmpl}, nil
}

// Create writes the artifacts selected by opts. Nothing is written when
// both kinds are disabled.
func (g *FileGenerator) Create(ctx context.Context, report *types.ReportObject, opts Options) (Artifacts, error) {
	var artifacts Artifacts
	if report == nil {
		return artifacts, errors.New("no report to generate")
	}
	if !opts.SaveHTML && !opts.SaveJSON {
		return artifacts, nil
	}
	if opts.ReportFilename == "" {
		return artifacts, errors.New("report filename is required")
	}

	dir, err := filepath.Abs(opts.ReportDir)
	if err != nil {
		return artifacts, fmt.Errorf("failed to resolve report directory '%s': %w", opts.ReportDir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return artifacts, fmt.Errorf("failed to create report directory: %w", err)
	}
	base := filepath.Join(dir, opts.ReportFilename)

	if opts.SaveJSON {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return artifacts, fmt.Errorf("failed to encode report: %w", err)
		}
		path := base + ".json"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return artifacts, fmt.Errorf("failed to write %s: %w", path, err)
		}
		g.log.Debug("Wrote JSON report", "path", path, "bytes", len(data))
		artifacts.JSON = path
	}

	if opts.SaveHTML {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		var buf bytes.Buffer
		if err := g.tmpl.Execute(&buf, newPage(report, opts.ReportTitle)); err != nil {
			return artifacts, fmt.Errorf("failed to execute HTML template: %w", err)
		}
		path := base + ".html"
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return artifacts, fmt.Errorf("failed to write %s: %w", path, err)
		}
		g.log.Debug("Wrote HTML report", "path", path, "bytes", buf.Len())
		artifacts.HTML = path
	}

	return artifacts, nil
}

// page is the data handed to the HTML template
type page struct {
	Title         string
	Stats         types.RunStats
	Suites        []*types.SuiteNode
	RootTests     []*types.TestNode
	CopyrightYear int
	Generated     string
}

func newPage(report *types.ReportObject, title string) page {
	p := page{
		Title:         title,
		Stats:         report.Stats,
		CopyrightYear: report.CopyrightYear,
		Generated:     time.Now().UTC().Format(time.RFC3339),
	}
	if report.Suites != nil {
		p.Suites = report.Suites.Suites
		p.RootTests = report.Suites.Tests
	}
	return p
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": func(ms int64) string {
			d := time.Duration(ms) * time.Millisecond
			if d < time.Second {
				return fmt.Sprintf("%dms", ms)
			}
			return d.String()
		},
		"testState": func(t *types.TestNode) string {
			switch {
			case t.Pass:
				return "passed"
			case t.Fail:
				return "failed"
			case t.Pending:
				return "pending"
			case t.Skipped:
				return "skipped"
			default:
				return "unknown"
			}
		},
	}
}
