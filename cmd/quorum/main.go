// Command quorum runs a parallel generation and ensemble-evaluation
// benchmark: it translates every question under each configured model
// configuration, selects one candidate per question by the configured
// voting strategy, scores selections against ground truth, and writes
// a per-question detail table plus a run summary.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-quorum/internal/cache"
	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ensemble"
	"github.com/ahrav/go-quorum/internal/evaluation"
	"github.com/ahrav/go-quorum/internal/executor"
	"github.com/ahrav/go-quorum/internal/generation"
	"github.com/ahrav/go-quorum/internal/pool"
	"github.com/ahrav/go-quorum/internal/runner"
	"github.com/ahrav/go-quorum/internal/translator"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath    string
		questionsPath string
		fixturePath   string
		verbose       bool
	)

	root := &cobra.Command{
		Use:          "quorum",
		Short:        "Parallel query-generation ensemble evaluation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, configPath, questionsPath, fixturePath, verbose)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "run.yaml", "run configuration file")
	root.Flags().StringVarP(&questionsPath, "questions", "q", "questions.json", "questions file with ground truth")
	root.Flags().StringVarP(&fixturePath, "executions", "x", "executions.json", "frozen execution results fixture")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return root
}

func run(cmd *cobra.Command, configPath, questionsPath, fixturePath string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := runner.LoadRunConfig(configPath)
	if err != nil {
		return err
	}
	questions, err := loadQuestions(questionsPath)
	if err != nil {
		return err
	}

	exec, err := executor.LoadStatic(fixturePath)
	if err != nil {
		return err
	}

	store, err := cache.Open(cache.Config{Path: cfg.CachePath, SyncWrites: true, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // best-effort close at exit

	creds, err := pool.NewCredentialPool(cfg.Credentials)
	if err != nil {
		return err
	}

	selector, err := ensemble.New(ensemble.Strategy(cfg.Strategy), ensemble.Options{Seed: cfg.Seed})
	if err != nil {
		return err
	}

	factory := generation.NewFactory(
		translator.NewGemini("", nil),
		store,
		generation.DefaultBackoffConfig(),
		logger,
	)
	workers := pool.New(creds, factory, pool.Config{
		ProcessesPerKey: cfg.ProcessesPerKey,
		UnitTimeout:     cfg.UnitTimeout,
		RatePerKey:      cfg.RatePerKey,
		Logger:          logger,
	})

	r := runner.New(runner.Params{
		RunID:            cfg.RunID,
		Pool:             workers,
		Selector:         selector,
		Evaluator:        evaluation.NewEvaluator(exec, cfg.UnitTimeout, logger),
		CorrectionBudget: cfg.CorrectionBudget,
		Logger:           logger,
	})

	result, err := r.Run(cmd.Context(), questions, cfg.Configurations)
	if err != nil {
		return err
	}
	if err := runner.WriteArtifacts(cfg.ResultsPath, result); err != nil {
		return err
	}

	logger.Info("artifacts written",
		"results_path", cfg.ResultsPath,
		"cache_stats", fmt.Sprintf("%+v", store.Stats()),
		"pool_stats", fmt.Sprintf("%+v", workers.Stats()))
	return nil
}

// loadQuestions reads the run's question set: a JSON array of questions
// with optional ground-truth code or pre-materialized tables.
func loadQuestions(path string) ([]domain.Question, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- questions path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return questions, nil
}
