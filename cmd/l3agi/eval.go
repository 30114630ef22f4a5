package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	l3agi "github.com/psyuktha/L3AGI"
	"github.com/psyuktha/L3AGI/engine/langchain"
	"github.com/psyuktha/L3AGI/eval"
	"github.com/psyuktha/L3AGI/observer"
)

func newEvalCommand(a *app) *cobra.Command {
	var (
		dataset     string
		dir         string
		evaluators  []string
		concurrency int
		judgeModel  string
		judgeTemp   float64
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the configured agent over a dataset and grade its answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inst, stopObserver, err := a.instruments(ctx)
			if err != nil {
				return err
			}
			defer stopObserver()

			ds, err := eval.LoadDataset(dir, dataset)
			if err != nil {
				return err
			}
			settings := a.cfg.AccountSettings()
			judge, err := langchain.NewLLM(settings, l3agi.AgentConfigs{Model: judgeModel, Temperature: judgeTemp})
			if err != nil {
				return err
			}

			engines := langchain.Factory(nil, langchain.WithLogger(a.logger))
			if inst != nil {
				engines = observer.WrapFactory(engines, inst)
			}
			agent := a.cfg.AgentWithConfigs()
			systemMessage := l3agi.NewSystemMessageBuilder(agent, "").Build()
			factory := func(ctx context.Context) (l3agi.Engine, error) {
				return engines(ctx, l3agi.EngineConfig{
					Settings:      settings,
					Agent:         agent,
					SystemMessage: systemMessage,
					SessionID:     l3agi.NewID(),
				})
			}

			report, err := eval.RunOnDataset(ctx, factory, ds, eval.Config{
				Evaluators:  evaluators,
				InputKey:    l3agi.InputKey,
				JudgeLLM:    judge,
				Concurrency: concurrency,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}
			_, err = report.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "test-dataset", "Dataset name")
	cmd.Flags().StringVar(&dir, "dir", "datasets", "Directory holding <dataset>.yaml")
	cmd.Flags().StringSliceVar(&evaluators, "evaluators", []string{"qa", "helpfulness", "conciseness"}, "Evaluators to run")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Examples evaluated in parallel")
	cmd.Flags().StringVar(&judgeModel, "judge-model", "gpt-4o-mini", "Model grading the answers")
	cmd.Flags().Float64Var(&judgeTemp, "judge-temperature", 0.5, "Temperature of the judge model")
	return cmd
}
