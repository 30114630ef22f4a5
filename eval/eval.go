// Package eval scores an agent against a dataset offline. Every example runs
// on a fresh engine; each output is then graded by LLM-judged evaluators.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"

	l3agi "github.com/psyuktha/L3AGI"
)

// Factory builds a fresh engine for one example.
type Factory func(ctx context.Context) (l3agi.Engine, error)

// Config controls a dataset run.
type Config struct {
	// Evaluators names built-in evaluators, see Lookup.
	Evaluators []string
	// Custom evaluators run after the named ones.
	Custom []Evaluator
	// InputKey is the engine input key for the example input. Defaults to l3agi.InputKey.
	InputKey string
	// JudgeLLM grades outputs. Required when any evaluator is configured.
	JudgeLLM llms.Model
	// Concurrency bounds the examples in flight. Defaults to 1.
	Concurrency int
	Logger      *slog.Logger
}

// Result is the outcome of one example.
type Result struct {
	Index     int              `json:"index"`
	Input     string           `json:"input"`
	Reference string           `json:"reference,omitempty"`
	Output    string           `json:"output"`
	Error     string           `json:"error,omitempty"`
	Scores    map[string]Score `json:"scores,omitempty"`
	// EvalErrors holds evaluator failures by evaluator name.
	EvalErrors map[string]string `json:"eval_errors,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

// Report aggregates a dataset run.
type Report struct {
	Dataset    string             `json:"dataset"`
	Evaluators []string           `json:"evaluators"`
	Results    []Result           `json:"results"`
	Means      map[string]float64 `json:"means"`
	Failed     int                `json:"failed"`
}

// RunOnDataset runs every example of ds through a fresh engine and grades the
// outputs. Engine and judge failures are recorded per example; only
// cancellation of ctx aborts the run.
func RunOnDataset(ctx context.Context, factory Factory, ds Dataset, cfg Config) (Report, error) {
	if factory == nil {
		return Report{}, errors.New("eval: factory is nil")
	}
	evaluators := make([]Evaluator, 0, len(cfg.Evaluators)+len(cfg.Custom))
	for _, name := range cfg.Evaluators {
		e, err := Lookup(name)
		if err != nil {
			return Report{}, err
		}
		evaluators = append(evaluators, e)
	}
	evaluators = append(evaluators, cfg.Custom...)
	if len(evaluators) > 0 && cfg.JudgeLLM == nil {
		return Report{}, errors.New("eval: evaluators configured without a judge LLM")
	}
	inputKey := cfg.InputKey
	if inputKey == "" {
		inputKey = l3agi.InputKey
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names := make([]string, len(evaluators))
	for i, e := range evaluators {
		names[i] = e.Name()
	}
	report := Report{Dataset: ds.Name, Evaluators: names, Results: make([]Result, len(ds.Examples))}

	logger.Info("eval: run started", "dataset", ds.Name, "examples", len(ds.Examples), "evaluators", names, "concurrency", limit)
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for idx, ex := range ds.Examples {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			res := runExample(groupCtx, factory, evaluators, cfg.JudgeLLM, inputKey, idx, ex)
			logger.Debug("eval: example done", "index", idx, "duration", res.Duration, "error", res.Error)
			mu.Lock()
			report.Results[idx] = res
			mu.Unlock()
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return report, fmt.Errorf("eval: %w", err)
	}

	report.Means = means(report.Results, names)
	for _, r := range report.Results {
		if r.Error != "" {
			report.Failed++
		}
	}
	logger.Info("eval: run finished", "dataset", ds.Name, "failed", report.Failed, "means", report.Means)
	return report, nil
}

func runExample(ctx context.Context, factory Factory, evaluators []Evaluator, judge llms.Model, inputKey string, idx int, ex Example) Result {
	start := time.Now()
	res := Result{Index: idx, Input: ex.Input, Reference: ex.Reference}

	engine, err := factory(ctx)
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	out, err := engine.Invoke(ctx, map[string]any{inputKey: ex.Input})
	if err != nil {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	res.Output = out

	for _, e := range evaluators {
		s, err := e.Evaluate(ctx, judge, ex, out)
		if err != nil {
			if res.EvalErrors == nil {
				res.EvalErrors = make(map[string]string)
			}
			res.EvalErrors[e.Name()] = err.Error()
			continue
		}
		if res.Scores == nil {
			res.Scores = make(map[string]Score)
		}
		res.Scores[e.Name()] = s
	}
	res.Duration = time.Since(start)
	return res
}

// means averages each evaluator over the examples it scored.
func means(results []Result, names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		var sum float64
		var n int
		for _, r := range results {
			if s, ok := r.Scores[name]; ok {
				sum += s.Value
				n++
			}
		}
		if n > 0 {
			out[name] = sum / float64(n)
		}
	}
	return out
}

// WriteTo prints a human-readable summary of the report.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset: %s (%d examples, %d failed)\n\n", r.Dataset, len(r.Results), r.Failed)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVALUATOR\tMEAN\tSCORED")
	names := append([]string(nil), r.Evaluators...)
	sort.Strings(names)
	for _, name := range names {
		scored := 0
		for _, res := range r.Results {
			if _, ok := res.Scores[name]; ok {
				scored++
			}
		}
		mean, ok := r.Means[name]
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t%d\n", name, scored)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%d\n", name, mean, scored)
	}
	tw.Flush()

	for _, res := range r.Results {
		if res.Error != "" {
			fmt.Fprintf(&b, "\n#%d %q failed: %s", res.Index, res.Input, res.Error)
		}
	}
	if r.Failed > 0 {
		b.WriteString("\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
