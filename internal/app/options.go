package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizquest-service/internal/logging"
	"quizquest-service/internal/metrics"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	feed    *LeaderboardFeed
	now     func() time.Time
	newID   func() string
}

func buildOptions(opts []Option) options {
	o := options{
		log:   logging.Discard(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLeaderboardFeed publishes a fresh leaderboard whenever XP is credited.
func WithLeaderboardFeed(feed *LeaderboardFeed) Option {
	return func(o *options) { o.feed = feed }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator is test-only for deterministic ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}
