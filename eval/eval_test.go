package eval

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tmc/langchaingo/llms"

	l3agi "github.com/psyuktha/L3AGI"
)

// judgeModel answers every prompt through respond.
type judgeModel struct {
	respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *judgeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, b.String())
	m.mu.Unlock()
	out, err := m.respond(b.String())
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *judgeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// answerEngine answers from a fixed table keyed by input.
type answerEngine struct {
	answers map[string]string
	key     string
}

func (e *answerEngine) StreamEvents(_ context.Context, _ map[string]any, ch chan<- l3agi.StreamEvent) error {
	close(ch)
	return nil
}

func (e *answerEngine) Invoke(_ context.Context, input map[string]any) (string, error) {
	q, _ := input[e.key].(string)
	a, ok := e.answers[q]
	if !ok {
		return "", errors.New("engine failed")
	}
	return a, nil
}

func testDataset() Dataset {
	return Dataset{Name: "capitals", Examples: []Example{
		{Input: "Capital of France?", Reference: "Paris"},
		{Input: "Capital of Spain?", Reference: "Madrid"},
		{Input: "Capital of Atlantis?", Reference: "none"},
	}}
}

func fixedFactory(key string, answers map[string]string) Factory {
	return func(context.Context) (l3agi.Engine, error) {
		return &answerEngine{answers: answers, key: key}, nil
	}
}

func TestRunOnDataset(t *testing.T) {
	judge := &judgeModel{respond: func(p string) (string, error) {
		switch {
		case strings.Contains(p, "STUDENT ANSWER: Paris"):
			return "GRADE: CORRECT", nil
		case strings.Contains(p, "GRADE:"):
			return "GRADE: INCORRECT", nil
		case strings.Contains(p, "[Criteria]: helpfulness"):
			return "The answer is useful.\nY\nY", nil
		default:
			return "Too long.\nN\nN", nil
		}
	}}
	factory := fixedFactory(l3agi.InputKey, map[string]string{
		"Capital of France?": "Paris",
		"Capital of Spain?":  "Barcelona",
	})

	report, err := RunOnDataset(context.Background(), factory, testDataset(), Config{
		Evaluators:  []string{"qa", "helpfulness", "conciseness"},
		JudgeLLM:    judge,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("RunOnDataset: %v", err)
	}
	if report.Dataset != "capitals" || len(report.Results) != 3 {
		t.Fatalf("report = %+v", report)
	}
	if report.Failed != 1 || report.Results[2].Error == "" {
		t.Errorf("failed = %d, results[2] = %+v", report.Failed, report.Results[2])
	}
	if got := report.Results[0].Scores["qa"]; got.Verdict != "CORRECT" || got.Value != 1 {
		t.Errorf("qa score = %+v", got)
	}
	if got := report.Results[1].Scores["qa"]; got.Verdict != "INCORRECT" {
		t.Errorf("qa score = %+v", got)
	}
	if got := report.Results[0].Scores["helpfulness"]; got.Reasoning != "The answer is useful." {
		t.Errorf("reasoning = %q", got.Reasoning)
	}
	want := map[string]float64{"qa": 0.5, "helpfulness": 1, "conciseness": 0}
	for name, mean := range want {
		if got, ok := report.Means[name]; !ok || got != mean {
			t.Errorf("mean[%s] = %v, want %v", name, got, mean)
		}
	}
}

func TestRunOnDatasetInputKey(t *testing.T) {
	factory := fixedFactory("question", map[string]string{"Capital of France?": "Paris"})
	ds := Dataset{Name: "one", Examples: []Example{{Input: "Capital of France?"}}}

	report, err := RunOnDataset(context.Background(), factory, ds, Config{InputKey: "question"})
	if err != nil {
		t.Fatalf("RunOnDataset: %v", err)
	}
	if report.Results[0].Output != "Paris" || report.Failed != 0 {
		t.Errorf("results = %+v", report.Results)
	}
}

func TestRunOnDatasetJudgeError(t *testing.T) {
	judge := &judgeModel{respond: func(string) (string, error) { return "", errors.New("judge down") }}
	factory := fixedFactory(l3agi.InputKey, map[string]string{"Capital of France?": "Paris"})
	ds := Dataset{Examples: []Example{{Input: "Capital of France?", Reference: "Paris"}}}

	report, err := RunOnDataset(context.Background(), factory, ds, Config{Evaluators: []string{"qa"}, JudgeLLM: judge})
	if err != nil {
		t.Fatalf("RunOnDataset: %v", err)
	}
	if !strings.Contains(report.Results[0].EvalErrors["qa"], "judge down") {
		t.Errorf("eval errors = %+v", report.Results[0].EvalErrors)
	}
	if _, ok := report.Means["qa"]; ok {
		t.Error("mean recorded with no scores")
	}
}

func TestRunOnDatasetConfigErrors(t *testing.T) {
	ds := testDataset()
	factory := fixedFactory(l3agi.InputKey, nil)
	if _, err := RunOnDataset(context.Background(), nil, ds, Config{}); err == nil {
		t.Error("expected error for nil factory")
	}
	if _, err := RunOnDataset(context.Background(), factory, ds, Config{Evaluators: []string{"qa"}}); err == nil {
		t.Error("expected error without judge")
	}
	if _, err := RunOnDataset(context.Background(), factory, ds, Config{Evaluators: []string{"vibes"}, JudgeLLM: &judgeModel{}}); err == nil {
		t.Error("expected error for unknown evaluator")
	}
}

func TestRunOnDatasetCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var built atomic.Int32
	factory := func(context.Context) (l3agi.Engine, error) {
		built.Add(1)
		return &answerEngine{}, nil
	}
	if _, err := RunOnDataset(ctx, factory, testDataset(), Config{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if built.Load() != 0 {
		t.Errorf("built %d engines after cancellation", built.Load())
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		verdict string
		wantErr bool
	}{
		{"GRADE: CORRECT", "CORRECT", false},
		{"correct", "CORRECT", false},
		{"The answer is wrong.\nGRADE: INCORRECT", "INCORRECT", false},
		{"I am not sure", "", true},
	}
	for _, tt := range tests {
		s, err := parseGrade(tt.in)
		if (err != nil) != tt.wantErr || s.Verdict != tt.verdict {
			t.Errorf("parseGrade(%q) = %+v, %v", tt.in, s, err)
		}
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in        string
		verdict   string
		reasoning string
		wantErr   bool
	}{
		{"Step 1 ok.\nY\nY", "Y", "Step 1 ok.", false},
		{"Rambling.\n\nN\n", "N", "Rambling.", false},
		{"Fine.\n\"y\".", "Y", "Fine.", false},
		{"Y", "Y", "", false},
		{"No letter here", "", "", true},
	}
	for _, tt := range tests {
		s, err := parseVerdict(tt.in)
		if (err != nil) != tt.wantErr || s.Verdict != tt.verdict || s.Reasoning != tt.reasoning {
			t.Errorf("parseVerdict(%q) = %+v, %v", tt.in, s, err)
		}
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	content := `examples:
  - input: "Capital of France?"
    reference: Paris
  - input: "2+2?"
    reference: "4"
`
	if err := os.WriteFile(filepath.Join(dir, "test-dataset.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(dir, "test-dataset")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if ds.Name != "test-dataset" || len(ds.Examples) != 2 || ds.Examples[1].Reference != "4" {
		t.Errorf("dataset = %+v", ds)
	}

	if _, err := LoadDataset(dir, "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing dataset err = %v", err)
	}
	if _, err := ParseDataset([]byte("examples: []")); err == nil {
		t.Error("expected error for empty dataset")
	}
	if _, err := ParseDataset([]byte("examples:\n  - reference: x\n")); err == nil {
		t.Error("expected error for example without input")
	}
}

func TestReportWriteTo(t *testing.T) {
	r := Report{
		Dataset:    "capitals",
		Evaluators: []string{"qa", "helpfulness"},
		Results: []Result{
			{Index: 0, Input: "a", Scores: map[string]Score{"qa": {Value: 1}}},
			{Index: 1, Input: "b", Error: "engine failed"},
		},
		Means:  map[string]float64{"qa": 1},
		Failed: 1,
	}
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"dataset: capitals (2 examples, 1 failed)", "qa", "1.00", "helpfulness", `#1 "b" failed: engine failed`} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
