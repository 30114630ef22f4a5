package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Score is one evaluator's verdict on one prediction. Value is 1 for a
// pass and 0 for a fail.
type Score struct {
	Value     float64 `json:"value"`
	Verdict   string  `json:"verdict"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Evaluator grades a prediction with a judge model.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, judge llms.Model, ex Example, prediction string) (Score, error)
}

// Criteria descriptions used by the built-in criteria evaluators.
const (
	HelpfulnessCriterion = "Is the submission helpful, insightful, and appropriate? If so, respond Y. If not, respond N."
	ConcisenessCriterion = "Is the submission concise and to the point? If so, respond Y. If not, respond N."
)

// Lookup returns a built-in evaluator: "qa", "helpfulness" or "conciseness".
func Lookup(name string) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "qa":
		return QA(), nil
	case "helpfulness":
		return Criteria("helpfulness", HelpfulnessCriterion), nil
	case "conciseness":
		return Criteria("conciseness", ConcisenessCriterion), nil
	default:
		return nil, fmt.Errorf("eval: unknown evaluator %q", name)
	}
}

// QA grades a prediction as CORRECT or INCORRECT against the example's reference.
func QA() Evaluator { return qaEvaluator{} }

type qaEvaluator struct{}

func (qaEvaluator) Name() string { return "qa" }

const qaPrompt = `You are a teacher grading a quiz.
You are given a question, the student's answer, and the true answer, and are asked to score the student answer as either CORRECT or INCORRECT.

Example Format:
QUESTION: question here
STUDENT ANSWER: student's answer here
TRUE ANSWER: true answer here
GRADE: CORRECT or INCORRECT here

Grade the student answers based ONLY on their factual accuracy. Ignore differences in punctuation and phrasing between the student answer and true answer. It is OK if the student answer contains more information than the true answer, as long as it does not contain any conflicting statements. Begin!

QUESTION: %s
STUDENT ANSWER: %s
TRUE ANSWER: %s
GRADE:`

func (qaEvaluator) Evaluate(ctx context.Context, judge llms.Model, ex Example, prediction string) (Score, error) {
	if ex.Reference == "" {
		return Score{}, fmt.Errorf("qa: example %q has no reference answer", ex.Input)
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, judge, fmt.Sprintf(qaPrompt, ex.Input, prediction, ex.Reference))
	if err != nil {
		return Score{}, fmt.Errorf("qa: judge: %w", err)
	}
	return parseGrade(out)
}

func parseGrade(out string) (Score, error) {
	text := strings.ToUpper(out)
	if i := strings.LastIndex(text, "GRADE:"); i >= 0 {
		text = text[i+len("GRADE:"):]
	}
	// INCORRECT contains CORRECT.
	switch {
	case strings.Contains(text, "INCORRECT"):
		return Score{Value: 0, Verdict: "INCORRECT", Reasoning: strings.TrimSpace(out)}, nil
	case strings.Contains(text, "CORRECT"):
		return Score{Value: 1, Verdict: "CORRECT", Reasoning: strings.TrimSpace(out)}, nil
	}
	return Score{}, fmt.Errorf("qa: no grade in judge output %q", out)
}

// Criteria grades a prediction against a single named criterion. The judge
// reasons first and ends with Y or N.
func Criteria(name, description string) Evaluator {
	return criteriaEvaluator{name: name, description: description}
}

type criteriaEvaluator struct {
	name, description string
}

func (c criteriaEvaluator) Name() string { return c.name }

const criteriaPrompt = `You are assessing a submitted answer on a given task or input based on a set of criteria. Here is the data:
[BEGIN DATA]
***
[Input]: %s
***
[Submission]: %s
***
[Criteria]: %s: %s
***
[END DATA]
Does the submission meet the Criteria? First, write out in a step by step manner your reasoning about each criterion to be sure that your conclusion is correct. Avoid simply stating the correct answers at the outset. Then print only the single character "Y" or "N" (without quotes or punctuation) on its own line corresponding to the correct answer of whether the submission meets all criteria. At the end, repeat just the letter again by itself on a new line.`

func (c criteriaEvaluator) Evaluate(ctx context.Context, judge llms.Model, ex Example, prediction string) (Score, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, judge, fmt.Sprintf(criteriaPrompt, ex.Input, prediction, c.name, c.description))
	if err != nil {
		return Score{}, fmt.Errorf("%s: judge: %w", c.name, err)
	}
	s, err := parseVerdict(out)
	if err != nil {
		return Score{}, fmt.Errorf("%s: %w", c.name, err)
	}
	return s, nil
}

// parseVerdict reads the trailing Y/N line; everything before it is reasoning.
func parseVerdict(out string) (Score, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		v := strings.ToUpper(strings.Trim(strings.TrimSpace(lines[i]), `"'.`))
		if v == "" {
			continue
		}
		if v != "Y" && v != "N" {
			break
		}
		// The letter is printed twice; the first copy is not reasoning.
		end := i
		if i > 0 && strings.EqualFold(strings.TrimSpace(lines[i-1]), v) {
			end = i - 1
		}
		reasoning := strings.TrimSpace(strings.Join(lines[:end], "\n"))
		if v == "Y" {
			return Score{Value: 1, Verdict: "Y", Reasoning: reasoning}, nil
		}
		return Score{Value: 0, Verdict: "N", Reasoning: reasoning}, nil
	}
	return Score{}, fmt.Errorf("no Y/N verdict in judge output %q", out)
}
