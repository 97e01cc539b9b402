// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package docstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/liveplot/lib/codec"
	"github.com/bureau-foundation/liveplot/lib/netutil"
	"github.com/bureau-foundation/liveplot/lib/schema/document"
)

// handshakeTimeout is how long a publisher waits for a subscriber's
// hello, and a subscriber for the publisher's header.
const handshakeTimeout = 10 * time.Second

// writeTimeout bounds one frame write to a subscriber.
const writeTimeout = 10 * time.Second

// maxHelloSize bounds the subscriber's hello.
const maxHelloSize = 4096

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Address is the TCP listen address. Required.
	Address string

	// QueueSize is the number of documents buffered per subscriber.
	// A subscriber that falls further behind is disconnected.
	// Defaults to 1024.
	QueueSize int

	// Compression, when not CompressionNone, is used for every
	// subscriber regardless of what it asks for. Frames are tagged,
	// so subscribers decode whatever arrives.
	Compression Compression

	Logger *slog.Logger
}

// Publisher serves a document stream to any number of subscribers.
// Publish never blocks: each subscriber has a bounded queue, and a
// subscriber whose queue overflows is disconnected rather than handed
// a run with holes in it. It reconnects and picks up from the next
// document.
type Publisher struct {
	address     string
	queueSize   int
	compression Compression
	logger      *slog.Logger

	ready chan struct{}
	addr  net.Addr

	mu          sync.Mutex
	subscribers map[*subscription]struct{}
	// changed is closed and replaced whenever subscribers changes.
	changed chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

type subscription struct {
	conn        net.Conn
	remote      string
	compression Compression
	queue       chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (s *subscription) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// NewPublisher creates a publisher. Call Serve to start accepting
// subscribers.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if config.Address == "" {
		return nil, errors.New("docstream: publisher Address is required")
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	if config.Compression > CompressionZstd {
		return nil, fmt.Errorf("docstream: unsupported compression %s", config.Compression)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{
		address:     config.Address,
		queueSize:   queueSize,
		compression: config.Compression,
		logger:      logger,
		ready:       make(chan struct{}),
		subscribers: make(map[*subscription]struct{}),
		changed:     make(chan struct{}),
	}, nil
}

// Ready returns a channel closed once the listener is bound.
func (p *Publisher) Ready() <-chan struct{} { return p.ready }

// Addr returns the resolved listen address. Only valid after Ready()
// is closed.
func (p *Publisher) Addr() net.Addr { return p.addr }

// Serve accepts subscribers until ctx is cancelled. Cancellation
// closes every subscriber connection; Serve returns nil once their
// goroutines have exited.
func (p *Publisher) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", p.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", p.address, err)
	}
	defer listener.Close()
	p.addr = listener.Addr()
	close(p.ready)

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	p.logger.Info("document publisher listening", "address", p.addr.String())

	var active sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			p.logger.Error("accept failed", "error", err)
			continue
		}
		active.Add(1)
		go func() {
			defer active.Done()
			p.handleConnection(ctx, conn)
		}()
	}

	active.Wait()
	return nil
}

// Publish sends a document to every connected subscriber. The
// document is encoded once; subscribers that cannot keep up are
// disconnected. Returns an error only when doc cannot be encoded.
func (p *Publisher) Publish(kind document.Kind, doc any) error {
	envelope, err := document.NewEnvelope(kind, doc)
	if err != nil {
		return err
	}
	encoded, err := codec.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", kind, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.published.Add(1)
	for s := range p.subscribers {
		select {
		case s.queue <- encoded:
		default:
			p.logger.Warn("subscriber queue overflow, disconnecting",
				"remote", s.remote,
				"queue_size", p.queueSize,
			)
			p.dropped.Add(1)
			p.removeLocked(s)
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

// WaitForSubscribers blocks until at least n subscribers are
// connected or ctx is done.
func (p *Publisher) WaitForSubscribers(ctx context.Context, n int) error {
	for {
		p.mu.Lock()
		count, changed := len(p.subscribers), p.changed
		p.mu.Unlock()
		if count >= n {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Publisher) addLocked(s *subscription) {
	p.subscribers[s] = struct{}{}
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Publisher) removeLocked(s *subscription) {
	if _, ok := p.subscribers[s]; !ok {
		return
	}
	delete(p.subscribers, s)
	s.close()
	close(p.changed)
	p.changed = make(chan struct{})
}

// handleConnection runs one subscription: handshake, then frames
// until the subscriber leaves, overflows, or ctx is cancelled.
func (p *Publisher) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	remote := conn.RemoteAddr().String()

	compression, err := p.handshake(conn)
	if err != nil {
		p.logger.Warn("subscriber handshake failed", "remote", remote, "error", err)
		return
	}

	s := &subscription{
		conn:        conn,
		remote:      remote,
		compression: compression,
		queue:       make(chan []byte, p.queueSize),
		done:        make(chan struct{}),
	}
	p.mu.Lock()
	p.addLocked(s)
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.removeLocked(s)
		p.mu.Unlock()
	}()
	p.logger.Info("subscriber connected", "remote", remote, "compression", compression.String())

	// Subscribers send nothing after the hello. A read returning
	// means the peer closed the connection.
	go func() {
		io.Copy(io.Discard, conn)
		s.close()
	}()

	encoder := codec.NewEncoder(conn)
	for {
		select {
		case encoded := <-s.queue:
			f, err := newFrame(encoded, s.compression)
			if err != nil {
				p.logger.Error("compressing document", "remote", remote, "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := encoder.Encode(f); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					p.logger.Warn("writing to subscriber failed", "remote", remote, "error", err)
				}
				return
			}
		case <-s.done:
			p.logger.Info("subscriber disconnected", "remote", remote)
			return
		case <-ctx.Done():
			return
		}
	}
}

// handshake reads the subscriber's hello and answers with the stream
// header, or with a refusal.
func (p *Publisher) handshake(conn net.Conn) (Compression, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var request hello
	if err := codec.NewDecoder(io.LimitReader(conn, maxHelloSize)).Decode(&request); err != nil {
		return 0, fmt.Errorf("reading hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	reply := header{Version: ProtocolVersion}
	compression, err := ParseCompression(request.Compression)
	switch {
	case request.Version != ProtocolVersion:
		err = fmt.Errorf("unsupported protocol version %d (publisher speaks %d)", request.Version, ProtocolVersion)
	case err == nil:
		if p.compression != CompressionNone {
			compression = p.compression
		}
		reply.Compression = compression.String()
	}
	if err != nil {
		reply.Error = err.Error()
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if writeErr := codec.NewEncoder(conn).Encode(reply); writeErr != nil {
		return 0, fmt.Errorf("writing header: %w", writeErr)
	}
	if err != nil {
		return 0, err
	}
	return compression, nil
}
