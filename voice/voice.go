// Package voice implements l3agi.Transcriber and l3agi.Synthesizer on the
// OpenAI audio endpoints. Recordings are fetched over HTTP before
// transcription; synthesized audio is handed to an Uploader, which decides
// where it lives and returns its public URL.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	l3agi "github.com/psyuktha/L3AGI"
)

// Defaults used when the agent configuration leaves a field empty.
const (
	DefaultTranscriber = openai.AudioModelWhisper1
	DefaultSynthesizer = openai.SpeechModelTTS1
	DefaultVoice       = "alloy"
)

// Uploader stores synthesized audio and returns a URL for it.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Service converts between speech and text.
type Service struct {
	download *resty.Client
	uploader Uploader
	retries  int
	logger   *slog.Logger
}

var (
	_ l3agi.Transcriber = (*Service)(nil)
	_ l3agi.Synthesizer = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each audio download.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.download.SetTimeout(d) }
}

// WithRetries sets how often failed provider calls are retried.
func WithRetries(n int) Option {
	return func(s *Service) {
		s.retries = n
		s.download.SetRetryCount(n)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service. uploader may be nil when only transcription is used.
func New(uploader Uploader, opts ...Option) *Service {
	s := &Service{
		download: resty.New().
			SetTimeout(60 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		uploader: uploader,
		retries:  2,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) client(settings l3agi.AccountVoiceSettings) (openai.Client, error) {
	if settings.APIKey == "" {
		return openai.Client{}, &l3agi.ErrLLM{Provider: "openai", Message: "voice API key is not configured"}
	}
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey), option.WithMaxRetries(s.retries)}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return openai.NewClient(opts...), nil
}

// SpeechToText downloads the recording at audioURL and transcribes it.
func (s *Service) SpeechToText(ctx context.Context, audioURL string, cfg l3agi.AgentConfigs, settings l3agi.AccountVoiceSettings) (string, error) {
	client, err := s.client(settings)
	if err != nil {
		return "", err
	}
	resp, err := s.download.R().SetContext(ctx).Get(audioURL)
	if err != nil {
		return "", fmt.Errorf("voice: download %s: %w", audioURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("voice: download %s: %w", audioURL, &l3agi.ErrHTTP{Status: resp.StatusCode(), Body: resp.String()})
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return "", fmt.Errorf("voice: download %s: empty recording", audioURL)
	}

	model := openai.AudioModel(cfg.Transcriber)
	if model == "" {
		model = DefaultTranscriber
	}
	start := time.Now()
	tr, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), fileName(audioURL), resp.Header().Get("Content-Type")),
		Model: model,
	})
	if err != nil {
		return "", fmt.Errorf("voice: transcribe: %w", providerError(err))
	}
	text := strings.TrimSpace(tr.Text)
	s.logger.Debug("voice: transcribed", "model", model, "bytes", len(audio), "chars", len(text), "duration", time.Since(start))
	return text, nil
}

// TextToSpeech synthesizes text as MP3, uploads it and returns its URL.
func (s *Service) TextToSpeech(ctx context.Context, text string, cfg l3agi.AgentConfigs, settings l3agi.AccountVoiceSettings) (string, error) {
	if s.uploader == nil {
		return "", errors.New("voice: no uploader configured for speech synthesis")
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("voice: nothing to synthesize")
	}
	client, err := s.client(settings)
	if err != nil {
		return "", err
	}

	model := openai.SpeechModel(cfg.Synthesizer)
	if model == "" {
		model = DefaultSynthesizer
	}
	voice := cfg.VoiceID
	if voice == "" {
		voice = DefaultVoice
	}
	start := time.Now()
	resp, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          model,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", fmt.Errorf("voice: synthesize: %w", providerError(err))
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("voice: read synthesized audio: %w", err)
	}

	key := "voice/" + l3agi.NewID() + ".mp3"
	u, err := s.uploader.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("voice: upload: %w", err)
	}
	s.logger.Debug("voice: synthesized", "model", model, "voice", voice, "bytes", len(audio), "duration", time.Since(start))
	return u, nil
}

// providerError maps an OpenAI API error to *l3agi.ErrHTTP so callers can
// report the provider status.
func providerError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &l3agi.ErrHTTP{Status: apiErr.StatusCode, Body: apiErr.Message}
	}
	return err
}

func fileName(audioURL string) string {
	u, err := url.Parse(audioURL)
	if err != nil {
		return "audio"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "audio"
	}
	return name
}
