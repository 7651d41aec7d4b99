package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/limaJavier/cctt/pkg/config"
	"github.com/limaJavier/cctt/pkg/metrics"
	"github.com/limaJavier/cctt/pkg/mip"
	"github.com/limaJavier/cctt/pkg/model"
	"github.com/limaJavier/cctt/pkg/report"
	"github.com/limaJavier/cctt/pkg/store"
	"github.com/limaJavier/cctt/pkg/strategy"
	"github.com/spf13/cobra"
)

type solveFlags struct {
	monolithic  bool
	backend     string
	strategy    string
	output      string
	xml         string
	database    string
	metrics     string
	timeLimit   time.Duration
	lpExport    bool
	dynamicCuts bool
}

func newSolveCmd(app *app) *cobra.Command {
	flags := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Solve a .ctt (or .json) instance and report the best timetable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSolve(ctx, app, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.monolithic, "monolithic", false, "Solve the whole problem at once instead of diving from the surface")
	cmd.Flags().StringVar(&flags.backend, "backend", "", `Solver backend, "gophersat" or "cbc"; overrides the configuration`)
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", `Diving strategy, "anytime" or "contract"; overrides the configuration`)
	cmd.Flags().StringVar(&flags.output, "output", "", "Prefix of the solution and neighbourhood files; nothing is written when empty")
	cmd.Flags().StringVar(&flags.xml, "xml", "", `Path of the xml progress log, "-" for the standard output`)
	cmd.Flags().StringVar(&flags.database, "db", "", "Path of the sqlite archive the run is stored in")
	cmd.Flags().StringVar(&flags.metrics, "metrics", "", "Path of the prometheus textfile written when the run ends")
	cmd.Flags().DurationVar(&flags.timeLimit, "time-limit", 0, "Time limit of the top search; overrides the configuration")
	cmd.Flags().BoolVar(&flags.lpExport, "lp", false, "Export every built model in LP format next to the output prefix")
	cmd.Flags().BoolVar(&flags.dynamicCuts, "cuts", false, "Separate cuts dynamically during the surface search")
	return cmd
}

func loadInstance(path string) (*model.Instance, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return model.InstanceFromJson(path)
	}
	return model.InstanceFromFile(path)
}

// configure applies the command line overrides on top of the loaded configuration.
func (flags *solveFlags) configure(cfg config.Config) (config.Config, error) {
	if flags.backend != "" {
		cfg.Backend = strings.ToLower(flags.backend)
	}
	if flags.strategy != "" {
		cfg.Strategy = strings.ToLower(flags.strategy)
	}
	if flags.timeLimit > 0 {
		if flags.monolithic {
			cfg.Phases.Monolithic.TimeLimit = flags.timeLimit
		} else {
			cfg.Phases.Surface.TimeLimit = flags.timeLimit
		}
	}
	if flags.lpExport {
		cfg.Features.LpExport = true
	}
	if flags.dynamicCuts {
		cfg.Features.DynamicCutsAtSurface = true
	}
	return cfg, config.Validate(cfg)
}

func solverFactory(backend string, logger *slog.Logger) strategy.SolverFactory {
	if backend == "cbc" {
		return mip.NewCbcSolver
	}
	return func() (mip.Solver, error) { return mip.NewGophersatSolver(logger), nil }
}

func runSolve(ctx context.Context, app *app, flags *solveFlags, instancePath string) error {
	logger := app.logger
	instance, err := loadInstance(instancePath)
	if err != nil {
		return fmt.Errorf("cannot parse instance file: %w", err)
	}
	cfg, err := flags.configure(app.config)
	if err != nil {
		return err
	}

	data := filepath.Base(instancePath)
	configId := "default"
	if app.configPath != "" {
		configId = filepath.Base(app.configPath)
	}

	recorders := report.Multi{}
	if flags.output != "" {
		recorders = append(recorders, report.NewFiles(flags.output, data))
	}

	var xmlLog *report.XMLLog
	if flags.xml != "" {
		var writer io.Writer = app.stdout
		if flags.xml != "-" {
			file, err := os.Create(flags.xml)
			if err != nil {
				return fmt.Errorf("cannot create xml log: %w", err)
			}
			defer file.Close()
			writer = file
		}
		if xmlLog, err = report.NewXMLLog(writer, data, configId); err != nil {
			return fmt.Errorf("cannot start xml log: %w", err)
		}
		recorders = append(recorders, xmlLog)
	}

	strategyName := cfg.Strategy
	if flags.monolithic {
		strategyName = "monolithic"
	}
	var archive *store.Store
	run := &store.Run{Instance: instance.Name, Strategy: strategyName, Backend: cfg.Backend, StartedAt: time.Now()}
	if flags.database != "" {
		if archive, err = store.Open(flags.database); err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.CreateRun(ctx, run); err != nil {
			return err
		}
		recorders = append(recorders, archive.Recorder(run.Id))
	}

	registry := metrics.New()
	result, err := strategy.Run(ctx, strategy.Options{
		Instance:     instance,
		Config:       &cfg,
		NewSolver:    solverFactory(cfg.Backend, logger),
		Recorder:     recorders,
		Metrics:      registry,
		Logger:       logger,
		OutputPrefix: flags.output,
		Monolithic:   flags.monolithic,
		RunId:        run.Id,
	})

	status := "finished"
	if err != nil {
		status = "failed"
	} else if !result.Found() {
		status = "not-found"
	}
	if xmlLog != nil {
		if closeErr := xmlLog.Close(result.Elapsed); closeErr != nil {
			logger.Warn("cannot close xml log", slog.String("error", closeErr.Error()))
		}
	}
	if archive != nil {
		// The solve context may already be cancelled by an interrupt
		if finishErr := archive.FinishRun(context.WithoutCancel(ctx), run.Id, status, time.Now()); finishErr != nil {
			logger.Warn("cannot finish stored run", slog.String("error", finishErr.Error()))
		}
	}
	if flags.metrics != "" {
		if writeErr := registry.WriteTextfile(flags.metrics); writeErr != nil {
			logger.Warn("cannot write metrics", slog.String("error", writeErr.Error()))
		}
	}
	if err != nil {
		return err
	}

	if result.BestCost == nil {
		app.exitCode = exitNotFound
		if !result.Found() {
			fmt.Fprintln(app.stdout, strategy.NoNeighbourhoodMessage)
		} else {
			fmt.Fprintln(app.stdout, "No timetable has been saved.")
		}
		return nil
	}
	app.exitCode = exitFound
	fmt.Fprintf(app.stdout, "Run: %v\n", result.RunId)
	fmt.Fprintf(app.stdout, "Best cost: %d\n", *result.BestCost)
	fmt.Fprintf(app.stdout, "Elapsed: %v\n", result.Elapsed.Round(time.Millisecond))
	return nil
}
