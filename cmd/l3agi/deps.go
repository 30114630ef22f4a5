package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	l3agi "github.com/psyuktha/L3AGI"
	"github.com/psyuktha/L3AGI/memory/zep"
	"github.com/psyuktha/L3AGI/observer"
	redispub "github.com/psyuktha/L3AGI/pubsub/redis"
	"github.com/psyuktha/L3AGI/store/postgres"
	"github.com/psyuktha/L3AGI/store/sqlite"
	"github.com/psyuktha/L3AGI/voice"
	s3upload "github.com/psyuktha/L3AGI/voice/s3"
)

// store is what both database backends provide.
type store interface {
	l3agi.MessageStore
	l3agi.RunLogStore
	CountMessages(ctx context.Context, sessionID string) (int, error)
}

// openStore returns the configured message store, initialized. The returned
// func releases it.
func (a *app) openStore(ctx context.Context) (store, func(), error) {
	db := a.cfg.Database
	switch db.Driver {
	case "postgres":
		if db.URL == "" {
			return nil, nil, errors.New("database.url is required for the postgres driver")
		}
		pool, err := postgres.Connect(ctx, db.URL)
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool)
		if err := s.Init(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	case "sqlite", "":
		s := sqlite.New(db.Path, sqlite.WithLogger(a.logger))
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// agentOptions wires the optional collaborators of a conversational run. The
// returned func releases what was opened.
func (a *app) agentOptions(ctx context.Context, inst *observer.Instruments) ([]l3agi.AgentOption, func(), error) {
	opts := []l3agi.AgentOption{l3agi.WithLogger(a.logger)}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Memory
	if a.cfg.Zep.APIURL != "" {
		client := zep.NewClient(a.cfg.Zep.APIURL, a.cfg.Zep.APIKey, zep.WithLogger(a.logger))
		opts = append(opts, l3agi.WithMemory(zep.Factory(client, zep.WithLastN(a.cfg.Zep.LastN))))
	}

	// Delivery
	if a.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB})
		closers = append(closers, func() { client.Close() })
		pub, err := redispub.New(client, redispub.WithPrefix(a.cfg.Redis.Prefix), redispub.WithLogger(a.logger))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, l3agi.WithPublisher(pub))
	}

	// Voice
	var uploader voice.Uploader
	if s3cfg := a.cfg.S3; s3cfg.Bucket != "" {
		up, err := s3upload.NewFromEnv(ctx, s3cfg.Bucket, s3cfg.Region, s3cfg.Endpoint,
			s3upload.WithPrefix(s3cfg.Prefix), s3upload.WithPublicURL(s3cfg.PublicURL))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		uploader = up
	}
	speech := voice.New(uploader, voice.WithLogger(a.logger))
	var (
		transcriber l3agi.Transcriber = speech
		synthesizer l3agi.Synthesizer = speech
	)
	if inst != nil {
		transcriber = observer.WrapTranscriber(speech, inst)
		synthesizer = observer.WrapSynthesizer(speech, inst)
	}
	opts = append(opts, l3agi.WithTranscriber(transcriber))
	if uploader != nil {
		opts = append(opts, l3agi.WithSynthesizer(synthesizer))
	}

	return opts, cleanup, nil
}

// instruments starts OTEL export when the observer is enabled. The returned
// func flushes and stops it.
func (a *app) instruments(ctx context.Context) (*observer.Instruments, func(), error) {
	if !a.cfg.Observer.Enabled {
		return nil, func() {}, nil
	}
	inst, shutdown, err := observer.Init(ctx, a.cfg.Observer.ServiceName)
	if err != nil {
		return nil, nil, fmt.Errorf("observer: %w", err)
	}
	return inst, func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("observer shutdown failed", "error", err)
		}
	}, nil
}
