package testreport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-testreport/engine"
	"github.com/ethereum-optimism/infra/op-testreport/flags"
	"github.com/ethereum-optimism/infra/op-testreport/generator"
)

// Options are the reporter options, settable from an options file or flags
type Options struct {
	Quiet          bool   `yaml:"quiet"`
	UseInlineDiffs bool   `yaml:"useInlineDiffs"`
	ReportDir      string `yaml:"reportDir"`
	ReportFilename string `yaml:"reportFilename"`
	ReportTitle    string `yaml:"reportTitle"`
	SaveHTML       bool   `yaml:"saveHtml"`
	SaveJSON       bool   `yaml:"saveJson"`
}

// DefaultOptions writes both artifacts to ./testreport/testreport.{html,json}
func DefaultOptions() Options {
	return Options{
		ReportDir:      "testreport",
		ReportFilename: "testreport",
		ReportTitle:    "Test Report",
		SaveHTML:       true,
		SaveJSON:       true,
	}
}

// GeneratorOptions are the options passed through to the report generator
func (o Options) GeneratorOptions() generator.Options {
	return generator.Options{
		ReportDir:      o.ReportDir,
		ReportFilename: o.ReportFilename,
		ReportTitle:    o.ReportTitle,
		SaveHTML:       o.SaveHTML,
		SaveJSON:       o.SaveJSON,
	}
}

// LoadOptionsFile overlays the keys present in the YAML file at path on base
func LoadOptionsFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read reporter options: %w", err)
	}
	opts := base
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return base, fmt.Errorf("failed to parse reporter options file %s: %w", path, err)
	}
	return opts, nil
}

// Config holds the configuration of one report run
type Config struct {
	Input         string // path of the event stream, "-" for stdin
	WorkDir       string // absolute
	Options       Options
	Slow          time.Duration
	Color         bool
	MetricsConfig opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a Config from cli context. Options come from the
// defaults, then the options file, then explicitly set flags.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	opts := DefaultOptions()
	if path := ctx.String(flags.ReporterOptions.Name); path != "" {
		var err error
		if opts, err = LoadOptionsFile(path, opts); err != nil {
			return nil, err
		}
	}
	applyFlagOverrides(ctx, &opts)

	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for workdir '%s': %w", ctx.String(flags.WorkDir.Name), err)
	}

	input := ctx.String(flags.Input.Name)
	if input == "" {
		return nil, errors.New("input is required")
	}

	slow := ctx.Duration(flags.Slow.Name)
	if slow <= 0 {
		slow = engine.DefaultSlow
	}

	cfg := &Config{
		Input:         input,
		WorkDir:       workDir,
		Options:       opts,
		Slow:          slow,
		Color:         ctx.Bool(flags.Color.Name),
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
		Log:           log,
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates the configuration
func (c *Config) Check() error {
	if c.Options.ReportFilename == "" && (c.Options.SaveHTML || c.Options.SaveJSON) {
		return errors.New("report filename is required when writing artifacts")
	}
	return c.MetricsConfig.Check()
}

func applyFlagOverrides(ctx *cli.Context, opts *Options) {
	if ctx.IsSet(flags.Quiet.Name) {
		opts.Quiet = ctx.Bool(flags.Quiet.Name)
	}
	if ctx.IsSet(flags.InlineDiffs.Name) {
		opts.UseInlineDiffs = ctx.Bool(flags.InlineDiffs.Name)
	}
	if ctx.IsSet(flags.ReportDir.Name) {
		opts.ReportDir = ctx.String(flags.ReportDir.Name)
	}
	if ctx.IsSet(flags.ReportFilename.Name) {
		opts.ReportFilename = ctx.String(flags.ReportFilename.Name)
	}
	if ctx.IsSet(flags.ReportTitle.Name) {
		opts.ReportTitle = ctx.String(flags.ReportTitle.Name)
	}
	if ctx.IsSet(flags.SaveHTML.Name) {
		opts.SaveHTML = ctx.Bool(flags.SaveHTML.Name)
	}
	if ctx.IsSet(flags.SaveJSON.Name) {
		opts.SaveJSON = ctx.Bool(flags.SaveJSON.Name)
	}
}
