package l3agi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/agents"
)

type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrUpstream wraps a failure raised while consuming an engine stream.
type ErrUpstream struct {
	Err error
}

func (e *ErrUpstream) Error() string {
	return "upstream stream: " + e.Err.Error()
}

func (e *ErrUpstream) Unwrap() error { return e.Err }

// HandleAgentError turns a run failure into the text shown to the user and
// persisted in place of the answer.
func HandleAgentError(err error) string {
	if err == nil {
		return ""
	}

	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) {
		return httpStatusMessage(httpErr.Status, httpErr.Body)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The agent took too long to respond. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled before the agent finished."
	case errors.Is(err, agents.ErrNotFinished):
		return "The agent stopped before reaching a final answer (iteration limit reached)."
	case errors.Is(err, agents.ErrUnableToParseOutput):
		return "The agent produced a response it could not understand. Please rephrase your request."
	}

	var llmErr *ErrLLM
	if errors.As(err, &llmErr) {
		return fmt.Sprintf("The %s model returned an error: %s", llmErr.Provider, llmErr.Message)
	}

	// langchaingo's clients only carry the status in the message text.
	msg := err.Error()
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		status, _ := strconv.Atoi(m[1])
		return httpStatusMessage(status, msg)
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid api key"):
		return httpStatusMessage(401, msg)
	case strings.Contains(lower, "rate limit"):
		return httpStatusMessage(429, msg)
	}
	return "Something went wrong while running the agent: " + msg
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})\b`)

func httpStatusMessage(status int, body string) string {
	switch {
	case status == 401 || status == 403:
		return "The API key configured for this account is invalid. Please update it in your settings."
	case status == 429:
		return "The model provider is rate limiting requests. Please wait a moment and try again."
	case status >= 500:
		return "The model provider is currently unavailable. Please try again later."
	default:
		return fmt.Sprintf("The model provider rejected the request (%d): %s", status, body)
	}
}
