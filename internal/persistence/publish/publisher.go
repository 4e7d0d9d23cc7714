package publish

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxAttempts     = 4
)

// Publisher writes each artifact twice: under its config_version, which is
// never rewritten by a later version, and under latest/.
type Publisher struct {
	client  *Client
	prefix  string
	log     *zap.Logger
	backoff func(attempt int) time.Duration
}

func NewPublisher(c *Client, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client: c,
		prefix: strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		log:    logger,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 200 * time.Millisecond
		},
	}
}

// Keys returns the object keys name is published under for version.
func (p *Publisher) Keys(version, name string) []string {
	return []string{
		path.Join(p.prefix, version, name),
		path.Join(p.prefix, "latest", name),
	}
}

func (p *Publisher) Publish(ctx context.Context, version, name string, body []byte) error {
	for _, key := range p.Keys(version, name) {
		if err := p.putWithRetry(ctx, key, body); err != nil {
			return err
		}
		p.log.Info("artifact published", zap.String("key", key), zap.Int("bytes", len(body)))
	}
	return nil
}

func (p *Publisher) putWithRetry(ctx context.Context, key string, body []byte) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := p.client.Put(ctx, key, body, contentTypeJSON)
		if err == nil {
			return nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		p.log.Debug("publish retry", zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
		t := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return lastErr
}
