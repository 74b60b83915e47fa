// Package collector drives a sample source on a fixed cadence with
// cooperative remote stop.
//
// Each tick polls the optional status endpoint, collects one payload,
// transmits it and sleeps the interval. A tick's failure is logged and
// swallowed; only an explicit stop command or context cancellation ends
// the loop.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"codeberg.org/mutker/metricshub/internal/errors"
	"codeberg.org/mutker/metricshub/internal/logger"
	"codeberg.org/mutker/metricshub/internal/sampler"
)

const (
	// StopCommand is the status-endpoint payload value that terminates a loop
	StopCommand = "STOP"

	requestTimeout = 15 * time.Second
)

type Config struct {
	Name      string
	IngestURL string
	StatusURL string
	Interval  time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.IngestURL == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "ingest URL is required")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	return nil
}

// Loop owns its run/stop state; nothing else mutates it
type Loop struct {
	cfg    Config
	source sampler.Source
	client *http.Client
}

func New(cfg Config, source sampler.Source) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = source.Name()
	}

	return &Loop{
		cfg:    cfg,
		source: source,
		client: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Run executes ticks until a stop command is observed or ctx is
// cancelled. It never returns an error for a failed tick.
func (l *Loop) Run(ctx context.Context) error {
	logger.Info().
		Str("collector", l.cfg.Name).
		Str("endpoint", l.cfg.IngestURL).
		Dur("interval", l.cfg.Interval).
		Msg("Starting collection loop")

	for {
		if l.shouldStop(ctx) {
			logger.Info().Str("collector", l.cfg.Name).Msg("Received STOP command. Shutting down...")
			return nil
		}

		if payload, ok := l.source.Collect(ctx); ok {
			l.send(ctx, payload)
		} else {
			logger.Debug().Str("collector", l.cfg.Name).Msg("No data this tick")
		}

		select {
		case <-ctx.Done():
			logger.Info().Str("collector", l.cfg.Name).Msg("Collection loop stopped")
			return nil
		case <-time.After(l.cfg.Interval):
		}
	}
}

// shouldStop polls the status endpoint. Transport errors and unexpected
// payloads fail open: the loop keeps running.
func (l *Loop) shouldStop(ctx context.Context) bool {
	if l.cfg.StatusURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.StatusURL, nil)
	if err != nil {
		return false
	}

	resp, err := l.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("collector", l.cfg.Name).Msg("Error checking stop status")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}

	return gjson.GetBytes(body, "command").String() == StopCommand
}

func (l *Loop) send(ctx context.Context, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Str("collector", l.cfg.Name).Msg("Failed to encode payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.IngestURL, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Str("collector", l.cfg.Name).Msg("Failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("collector", l.cfg.Name).Msg("Error sending data")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Error().
			Str("collector", l.cfg.Name).
			Int("status", resp.StatusCode).
			Str("response", string(respBody)).
			Msg("Error sending data")
		return
	}

	logger.Debug().Str("collector", l.cfg.Name).Msg("Successfully sent data")
}
