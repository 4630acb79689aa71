package peerlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"smartclock-hub/internal/data"

	"go.uber.org/zap"
)

var ErrNoAck = errors.New("no acknowledgement from hub")

// Sender is the remote node's side of the link. Candidate hub addresses play
// the role of radio channels: until one acknowledges, each failed send moves
// to the next candidate, wrapping around. Once a hub has acknowledged, the
// sender stays on it.
type Sender struct {
	hubs       []string
	ackTimeout time.Duration
	logger     *zap.Logger
	channel    int
	connected  bool
}

func NewSender(hubs []string, ackTimeout time.Duration, logger *zap.Logger) (*Sender, error) {
	if len(hubs) == 0 {
		return nil, errors.New("no hub addresses configured")
	}
	return &Sender{hubs: hubs, ackTimeout: ackTimeout, logger: logger}, nil
}

// Channel returns the index of the hub currently targeted.
func (s *Sender) Channel() int { return s.channel }

func (s *Sender) Connected() bool { return s.connected }

// Send makes one bounded attempt to deliver rec.
func (s *Sender) Send(ctx context.Context, rec data.TelemetryRecord) error {
	addr := s.hubs[s.channel]
	err := s.sendOnce(ctx, addr, data.EncodeTelemetry(rec))
	if err == nil {
		s.connected = true
		return nil
	}
	if !s.connected {
		s.channel = (s.channel + 1) % len(s.hubs)
		s.logger.Info("Send failed, trying other channel",
			zap.String("failed", addr),
			zap.String("next", s.hubs[s.channel]),
			zap.Error(err),
		)
	}
	return err
}

func (s *Sender) sendOnce(ctx context.Context, addr string, payload []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.ackTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	ack := make([]byte, 1)
	n, err := conn.Read(ack)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoAck, addr, err)
	}
	if n != 1 || ack[0] != AckByte {
		return fmt.Errorf("%w: %s: unexpected reply", ErrNoAck, addr)
	}
	return nil
}
