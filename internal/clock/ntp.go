package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"
)

// ErrNotSynced is returned by NTPSource until the first successful query.
var ErrNotSynced = errors.New("time not synchronized")

// retryInterval is used between failed syncs before the first success and
// after any failure.
const retryInterval = 10 * time.Second

type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPSource keeps the host clock's offset from an NTP server. Now never
// touches the network; Run refreshes the offset in the background.
type NTPSource struct {
	server       string
	timeout      time.Duration
	syncInterval time.Duration
	logger       *zap.Logger
	query        queryFunc

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

func NewNTPSource(server string, timeout, syncInterval time.Duration, logger *zap.Logger) *NTPSource {
	return &NTPSource{
		server:       server,
		timeout:      timeout,
		syncInterval: syncInterval,
		logger:       logger,
		query:        ntp.QueryWithOptions,
	}
}

func (s *NTPSource) Now(context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.synced {
		return time.Time{}, ErrNotSynced
	}
	return time.Now().Add(s.offset), nil
}

// Sync performs one bounded query and updates the offset on success.
func (s *NTPSource) Sync() error {
	resp, err := s.query(s.server, ntp.QueryOptions{Timeout: s.timeout})
	if err != nil {
		return fmt.Errorf("query %s: %w", s.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("validate response from %s: %w", s.server, err)
	}
	s.mu.Lock()
	s.offset = resp.ClockOffset
	s.synced = true
	s.mu.Unlock()
	s.logger.Info("Clock synchronized",
		zap.String("server", s.server),
		zap.Duration("offset", resp.ClockOffset),
	)
	return nil
}

// Run syncs immediately, then every syncInterval, retrying sooner after failures.
func (s *NTPSource) Run(ctx context.Context) {
	for {
		wait := s.syncInterval
		if err := s.Sync(); err != nil {
			s.logger.Warn("NTP sync failed", zap.Error(err))
			wait = retryInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
