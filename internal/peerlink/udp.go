// Package peerlink carries fixed-layout telemetry records from the remote
// sensor node to the hub.
package peerlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// AckByte is returned to the sender for every accepted record.
const AckByte = 0x06

// maxDatagram is larger than any valid record so oversized payloads are seen
// whole and rejected rather than silently truncated to a valid length.
const maxDatagram = 512

// Handler consumes one payload. A non-nil error means the payload was dropped.
type Handler func(payload []byte) error

type UDPListener struct {
	addr        string
	readTimeout time.Duration
	handler     Handler
	logger      *zap.Logger
	conn        net.PacketConn
}

func NewUDPListener(addr string, readTimeout time.Duration, handler Handler, logger *zap.Logger) *UDPListener {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	return &UDPListener{addr: addr, readTimeout: readTimeout, handler: handler, logger: logger}
}

// Listen binds the socket; call before Serve.
func (l *UDPListener) Listen() error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", l.addr, err)
	}
	l.conn = conn
	return nil
}

func (l *UDPListener) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve handles datagrams until ctx is done, then closes the socket.
func (l *UDPListener) Serve(ctx context.Context) error {
	if l.conn == nil {
		return errors.New("udp listener not bound")
	}
	defer l.conn.Close()
	l.logger.Info("Peer link listening", zap.String("addr", l.conn.LocalAddr().String()))

	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			return nil
		}
		l.conn.SetReadDeadline(time.Now().Add(l.readTimeout))
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Warn("Peer link read failed", zap.Error(err))
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		if err := l.handler(payload); err != nil {
			l.logger.Debug("Peer link payload dropped",
				zap.String("from", from.String()),
				zap.Int("size", n),
				zap.Error(err),
			)
			continue
		}
		if _, err := l.conn.WriteTo([]byte{AckByte}, from); err != nil {
			l.logger.Warn("Peer link ack failed", zap.String("to", from.String()), zap.Error(err))
		}
	}
}
