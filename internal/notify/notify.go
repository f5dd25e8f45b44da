// Package notify delivers human-facing alerts when a pipeline checkpoint
// needs attention. Delivery is best-effort by contract: a checkpoint must
// still block for its decision even when every channel fails, so callers
// log notification errors and proceed.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrAllChannelsFailed is returned by a Chain when no channel delivered.
var ErrAllChannelsFailed = errors.New("all notification channels failed")

// Message is one checkpoint alert.
type Message struct {
	// ProjectID identifies the project awaiting a decision.
	ProjectID string `json:"project_id"`

	// Subject is a one-line summary.
	Subject string `json:"subject"`

	// Body carries the full prompt shown to the reviewer.
	Body string `json:"body"`
}

// Notifier delivers a message over one channel.
type Notifier interface {
	// Notify sends the message. Errors mean this channel failed; they never
	// imply the checkpoint itself failed.
	Notify(ctx context.Context, msg Message) error

	// Name identifies the channel in logs.
	Name() string
}

// LogNotifier writes the alert to the structured log. It is the terminal
// fallback and never fails.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-channel notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Name implements Notifier.
func (n *LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("checkpoint notification",
		zap.String("project_id", msg.ProjectID),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// Chain tries each channel in order and stops at the first success, so
// later channels act as fallbacks rather than duplicate deliveries.
// Per-channel failures are logged and tolerated. When every channel fails
// the individual errors are joined under ErrAllChannelsFailed.
type Chain struct {
	channels []Notifier
	logger   *zap.Logger
}

// NewChain builds a delivery chain. Nil channels are dropped.
func NewChain(logger *zap.Logger, channels ...Notifier) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Notifier, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Chain{channels: kept, logger: logger}
}

// Name implements Notifier.
func (c *Chain) Name() string { return "chain" }

// Notify implements Notifier.
func (c *Chain) Notify(ctx context.Context, msg Message) error {
	if len(c.channels) == 0 {
		return nil
	}

	var failures []error
	for _, ch := range c.channels {
		if err := ch.Notify(ctx, msg); err != nil {
			c.logger.Warn("notification channel failed",
				zap.String("channel", ch.Name()),
				zap.String("project_id", msg.ProjectID),
				zap.Error(err))
			failures = append(failures, err)
			continue
		}
		return nil
	}

	return errors.Join(ErrAllChannelsFailed, errors.Join(failures...))
}
