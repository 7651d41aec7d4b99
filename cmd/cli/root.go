package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	validLogFormats = []string{"text", "json"}
	logLevels       = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// app carries what the persistent flags resolve to across subcommands.
type app struct {
	stdout     io.Writer
	logFormat  string
	logLevel   string
	configPath string
	solvers    string

	logger   *slog.Logger
	config   config.Config
	exitCode int
}

func newApp(stdout io.Writer) *app {
	return &app{stdout: stdout, logFormat: "text", logLevel: "info"}
}

func newRootCmd(app *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cctt",
		Short:         "Curriculum-based course timetabling by multi-phase diving",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.logFormat, "log-format", "text", `Log format, either "text" or "json"`)
	flags.StringVar(&app.logLevel, "log-level", "info", `Log level: "debug", "info", "warn" or "error"`)
	flags.StringVar(&app.configPath, "config", "", "Path to a yaml or json configuration; defaults apply when empty")
	flags.StringVar(&app.solvers, "solvers", "", "Path to the json file with external solver executables; defaults to config.json next to the executable")

	root.AddCommand(newSolveCmd(app), newInspectCmd(app))
	return root
}

func (app *app) setup() error {
	format := strings.ToLower(app.logFormat)
	if !slices.Contains(validLogFormats, format) {
		return fmt.Errorf("%v is not a valid log format", app.logFormat)
	}
	level, ok := logLevels[strings.ToLower(app.logLevel)]
	if !ok {
		return fmt.Errorf("%v is not a valid log level", app.logLevel)
	}
	options := &slog.HandlerOptions{Level: level}
	if format == "json" {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, options))
	} else {
		app.logger = slog.New(slog.NewTextHandler(os.Stderr, options))
	}

	app.config = config.Default()
	if app.configPath != "" {
		loaded, err := config.Load(app.configPath)
		if err != nil {
			return err
		}
		app.config = loaded
	}

	if app.solvers != "" {
		mip.ConfigPath = app.solvers
	} else if path, ok := besideExecutable("config.json"); ok {
		mip.ConfigPath = path
	}
	return nil
}

// besideExecutable looks for name in the directory of the running binary.
func besideExecutable(name string) (string, bool) {
	execPath, err := os.Executable()
	if err != nil {
		return "", false
	}
	files, err := os.ReadDir(filepath.Dir(execPath))
	if err != nil {
		return "", false
	}
	fileNames := lo.Map(files, func(file os.DirEntry, _ int) string { return file.Name() })
	if !slices.Contains(fileNames, name) {
		return "", false
	}
	return filepath.Join(filepath.Dir(execPath), name), true
}
