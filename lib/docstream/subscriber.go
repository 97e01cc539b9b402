// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package docstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/liveplot/lib/clock"
	"github.com/bureau-foundation/liveplot/lib/codec"
	"github.com/bureau-foundation/liveplot/lib/netutil"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
)

// HandlerFunc receives each decoded document. dispatch.Engine's
// OnDocument has this signature.
type HandlerFunc func(kind document.Kind, doc any) error

// Reconnect backoff defaults. The delay doubles on each attempt that
// delivers nothing and resets once a connection delivers a document.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// dialTimeout bounds one connection attempt.
const dialTimeout = 10 * time.Second

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	// Address is the publisher's host:port. Required.
	Address string

	// Compression requested from the publisher.
	Compression Compression

	// Handler receives every document. Required.
	Handler HandlerFunc

	// Clock paces reconnects. Defaults to the real clock.
	Clock clock.Clock

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger *slog.Logger
}

// Subscriber is the remote subscription worker. It owns its
// connection, forwards every document unchanged to the handler, and
// reconnects when the stream ends.
type Subscriber struct {
	address        string
	compression    Compression
	handler        HandlerFunc
	clock          clock.Clock
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger

	connected  atomic.Bool
	received   atomic.Uint64
	skipped    atomic.Uint64
	rejected   atomic.Uint64
	reconnects atomic.Uint64
}

// NewSubscriber creates a subscriber. Call Run to start it.
func NewSubscriber(config SubscriberConfig) (*Subscriber, error) {
	if config.Address == "" {
		return nil, errors.New("docstream: subscriber Address is required")
	}
	if config.Handler == nil {
		return nil, errors.New("docstream: subscriber Handler is required")
	}
	if config.Compression > CompressionZstd {
		return nil, fmt.Errorf("docstream: unsupported compression %s", config.Compression)
	}
	s := &Subscriber{
		address:        config.Address,
		compression:    config.Compression,
		handler:        config.Handler,
		clock:          config.Clock,
		initialBackoff: config.InitialBackoff,
		maxBackoff:     config.MaxBackoff,
		logger:         config.Logger,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.initialBackoff <= 0 {
		s.initialBackoff = DefaultInitialBackoff
	}
	if s.maxBackoff <= 0 {
		s.maxBackoff = DefaultMaxBackoff
	}
	if s.maxBackoff < s.initialBackoff {
		s.maxBackoff = s.initialBackoff
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Connected reports whether a stream is currently established.
func (s *Subscriber) Connected() bool { return s.connected.Load() }

// Run connects and delivers documents until ctx is cancelled, then
// closes the connection and returns nil. Connection failures are
// logged and retried with exponential backoff; Run never returns them.
func (s *Subscriber) Run(ctx context.Context) error {
	backoff := s.initialBackoff
	for {
		delivered, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			backoff = s.initialBackoff
		}
		if err == nil || netutil.IsExpectedCloseError(err) {
			s.logger.Info("document stream closed, reconnecting",
				"address", s.address,
				"backoff", backoff,
			)
		} else {
			s.logger.Warn("document stream failed, reconnecting",
				"address", s.address,
				"error", err,
				"backoff", backoff,
			)
		}

		select {
		case <-s.clock.After(backoff):
		case <-ctx.Done():
			return nil
		}
		s.reconnects.Add(1)
		backoff = min(backoff*2, s.maxBackoff)
	}
}

// session runs one connection. delivered reports whether at least one
// frame arrived.
func (s *Subscriber) session(ctx context.Context) (delivered bool, err error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", s.address, err)
	}
	defer conn.Close()
	// Cancellation is closing the connection; the blocked Decode
	// below then returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := codec.NewEncoder(conn).Encode(hello{
		Version:     ProtocolVersion,
		Compression: s.compression.String(),
	}); err != nil {
		return false, fmt.Errorf("writing hello: %w", err)
	}
	decoder := codec.NewDecoder(conn)
	var reply header
	if err := decoder.Decode(&reply); err != nil {
		return false, fmt.Errorf("reading stream header: %w", err)
	}
	if reply.Error != "" {
		return false, fmt.Errorf("publisher refused subscription: %s", reply.Error)
	}
	conn.SetDeadline(time.Time{})

	s.connected.Store(true)
	defer s.connected.Store(false)
	s.logger.Info("subscribed to document stream",
		"address", s.address,
		"version", reply.Version,
		"compression", reply.Compression,
	)

	for {
		var f frame
		if err := decoder.Decode(&f); err != nil {
			return delivered, err
		}
		delivered = true
		s.deliver(f)
	}
}

// deliver decodes one frame and hands it to the handler. Frames that
// cannot be decoded, and kinds liveplot does not plot, are skipped;
// the stream stays in sync because every frame is self-delimiting.
func (s *Subscriber) deliver(f frame) {
	encoded, err := f.envelope()
	if err != nil {
		s.skipped.Add(1)
		s.logger.Warn("skipping undecodable frame", "error", err)
		return
	}
	var envelope document.Envelope
	if err := codec.Unmarshal(encoded, &envelope); err != nil {
		s.skipped.Add(1)
		s.logger.Warn("skipping undecodable envelope", "error", err)
		return
	}
	kind, ok := document.ParseKind(envelope.Name)
	if !ok {
		s.skipped.Add(1)
		s.logger.Debug("skipping document kind", "name", envelope.Name)
		return
	}
	doc, err := document.Decode(kind, envelope.Doc)
	if err != nil {
		s.skipped.Add(1)
		diagnostic, _ := codec.Diagnose(envelope.Doc)
		s.logger.Warn("skipping undecodable document",
			"kind", kind,
			"error", err,
			"payload", truncate(diagnostic, 256),
		)
		return
	}
	s.received.Add(1)
	if err := s.handler(kind, doc); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("document handler failed", "kind", kind, "error", err)
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
