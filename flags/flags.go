package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_TESTREPORT"

var (
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "-",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INPUT"),
		Usage:   "Path to a `go test -json` event stream, '-' reads stdin",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKDIR"),
		Usage:   "Module directory the tests ran in; used for source lookup and relative file paths",
	}
	ReporterOptions = &cli.StringFlag{
		Name:    "reporter-options",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTER_OPTIONS"),
		Usage:   "Path to a YAML file with reporter options (eg. 'testreport.yaml')",
	}
	Quiet = &cli.BoolFlag{
		Name:    "quiet",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "QUIET"),
		Usage:   "Suppress reporter log output",
	}
	InlineDiffs = &cli.BoolFlag{
		Name:    "inline-diffs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INLINE_DIFFS"),
		Usage:   "Use word-level inline diffs instead of unified diffs",
	}
	ReportDir = &cli.StringFlag{
		Name:    "report-dir",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_DIR"),
		Usage:   "Directory the report artifacts are written to",
	}
	ReportFilename = &cli.StringFlag{
		Name:    "report-filename",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_FILENAME"),
		Usage:   "Base filename of the report artifacts, without extension",
	}
	ReportTitle = &cli.StringFlag{
		Name:    "report-title",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_TITLE"),
		Usage:   "Title of the HTML report",
	}
	SaveHTML = &cli.BoolFlag{
		Name:    "html",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HTML"),
		Usage:   "Write the HTML report",
	}
	SaveJSON = &cli.BoolFlag{
		Name:    "json",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JSON"),
		Usage:   "Write the JSON report",
	}
	Slow = &cli.DurationFlag{
		Name:    "slow",
		Value:   75 * time.Millisecond,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SLOW"),
		Usage:   "Duration above which a passing test is reported as slow",
	}
	Color = &cli.BoolFlag{
		Name:    "color",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COLOR"),
		Usage:   "Colorize console output",
	}
)

var (
	ServeDir = &cli.StringFlag{
		Name:    "dir",
		Value:   "testreport",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_DIR"),
		Usage:   "Report directory to serve",
	}
	ServeAddr = &cli.StringFlag{
		Name:    "addr",
		Value:   "0.0.0.0",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_ADDR"),
		Usage:   "Address the report server listens on",
	}
	ServePort = &cli.IntFlag{
		Name:    "port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_PORT"),
		Usage:   "Port the report server listens on",
	}
)

var optionalFlags = []cli.Flag{
	Input,
	WorkDir,
	ReporterOptions,
	Quiet,
	InlineDiffs,
	ReportDir,
	ReportFilename,
	ReportTitle,
	SaveHTML,
	SaveJSON,
	Slow,
	Color,
}

// Flags of the default report command
var Flags []cli.Flag

// ServeFlags of the serve command
var ServeFlags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = optionalFlags
	ServeFlags = append([]cli.Flag{ServeDir, ServeAddr, ServePort}, oplog.CLIFlags(EnvVarPrefix)...)
}
