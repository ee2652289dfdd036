// Package stream manages live server-push subscriptions: at most one
// connection per kind, heartbeat filtering, a bounded log buffer, and
// stale-read protection after close.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/transport"
)

// Kind is a logical subscription: backend logs or job lifecycle events.
type Kind string

const (
	KindLogs      Kind = "logs"
	KindJobEvents Kind = "job-events"
)

// DefaultLogCap bounds the visible log buffer; new entries evict the oldest.
const DefaultLogCap = 500

const handshakeTimeout = 10 * time.Second

// Conn is the minimal connection surface the adapter reads from.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// DialFunc opens a connection to the given URL. The default dials a
// websocket; tests inject fakes.
type DialFunc func(ctx context.Context, rawURL string) (Conn, error)

// wireMessage is the envelope for every pushed message. Heartbeats carry
// no payload and never reach consumers.
type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	msgHeartbeat = "heartbeat"
	msgLog       = "log"
	msgJobEvent  = "job_event"
)

// Handlers receive parsed messages and liveness changes. OnDown fires once
// per connection when a transport error kills it; the adapter never
// reconnects on its own, that is the owner's activation policy.
type Handlers struct {
	OnLog   func(models.LogEntry)
	OnEvent func(models.JobEvent)
	OnDown  func(kind Kind, err error)
}

type subscription struct {
	conn Conn
	gen  uint64
}

// Adapter owns the live connections.
type Adapter struct {
	baseURL  string
	creds    transport.CredentialSource
	dial     DialFunc
	logger   *slog.Logger
	logCap   int
	handlers Handlers

	mu      sync.Mutex
	subs    map[Kind]*subscription
	gen     map[Kind]uint64
	lastErr map[Kind]error
	logs    []models.LogEntry
}

// Config holds adapter settings.
type Config struct {
	BaseURL string // the backend's HTTP base URL; converted to ws/wss
	Creds   transport.CredentialSource
	Dial    DialFunc // optional, tests
	LogCap  int
	Logger  *slog.Logger
}

// New creates a stream adapter. Handlers must be set before the first Open.
func New(cfg Config) *Adapter {
	if cfg.LogCap <= 0 {
		cfg.LogCap = DefaultLogCap
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dial := cfg.Dial
	if dial == nil {
		dial = dialWebsocket
	}
	return &Adapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   cfg.Creds,
		dial:    dial,
		logger:  logger,
		logCap:  cfg.LogCap,
		subs:    make(map[Kind]*subscription),
		gen:     make(map[Kind]uint64),
		lastErr: make(map[Kind]error),
	}
}

// SetHandlers registers message consumers. Safe to call while streams are
// live; in-flight messages use whichever handler set they observed.
func (a *Adapter) SetHandlers(h Handlers) {
	a.mu.Lock()
	a.handlers = h
	a.mu.Unlock()
}

// Open establishes the subscription for kind, closing any existing live
// connection of that kind first.
func (a *Adapter) Open(ctx context.Context, kind Kind) error {
	a.mu.Lock()
	a.closeLocked(kind)
	a.gen[kind]++
	gen := a.gen[kind]
	a.lastErr[kind] = nil
	a.mu.Unlock()

	conn, err := a.dial(ctx, a.streamURL(kind))

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen[kind] != gen {
		// Closed (or reopened) while dialing; this connection lost the race.
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		a.lastErr[kind] = err
		return fmt.Errorf("open %s stream: %w", kind, err)
	}
	a.subs[kind] = &subscription{conn: conn, gen: gen}
	go a.readLoop(kind, conn, gen)
	a.logger.Debug("stream opened", "kind", kind)
	return nil
}

// Close tears down the subscription for kind. Idempotent and safe when no
// connection is live; any in-flight read for the old connection is
// discarded by the generation check.
func (a *Adapter) Close(kind Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen[kind]++
	a.closeLocked(kind)
}

func (a *Adapter) closeLocked(kind Kind) {
	if sub, ok := a.subs[kind]; ok {
		sub.conn.Close()
		delete(a.subs, kind)
		a.logger.Debug("stream closed", "kind", kind)
	}
}

// Live reports whether a connection for kind is currently established.
func (a *Adapter) Live(kind Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.subs[kind]
	return ok
}

// LastError returns the most recent transport error for kind, if any.
func (a *Adapter) LastError(kind Kind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr[kind]
}

// Logs returns a copy of the buffered log entries, oldest first.
func (a *Adapter) Logs() []models.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.LogEntry, len(a.logs))
	copy(out, a.logs)
	return out
}

func (a *Adapter) readLoop(kind Kind, conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			a.handleDown(kind, gen, err)
			return
		}
		a.dispatch(kind, gen, data)
	}
}

// handleDown marks the subscription not-live unless it was already
// superseded by an explicit Close or a newer Open.
func (a *Adapter) handleDown(kind Kind, gen uint64, err error) {
	a.mu.Lock()
	if a.gen[kind] != gen {
		a.mu.Unlock()
		return
	}
	a.closeLocked(kind)
	a.lastErr[kind] = err
	h := a.handlers
	a.mu.Unlock()

	a.logger.Warn("stream connection lost", "kind", kind, "error", err)
	if h.OnDown != nil {
		h.OnDown(kind, err)
	}
}

// dispatch parses one message. Malformed messages are dropped without
// killing the stream; heartbeats never reach consumers.
func (a *Adapter) dispatch(kind Kind, gen uint64, data []byte) {
	a.mu.Lock()
	stale := a.gen[kind] != gen
	h := a.handlers
	a.mu.Unlock()
	if stale {
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		a.logger.Debug("malformed stream message dropped", "kind", kind, "error", err)
		return
	}

	switch msg.Type {
	case msgHeartbeat:
		return
	case msgLog:
		var entry models.LogEntry
		if err := json.Unmarshal(msg.Payload, &entry); err != nil {
			a.logger.Debug("malformed log entry dropped", "error", err)
			return
		}
		a.appendLog(entry)
		if h.OnLog != nil {
			h.OnLog(entry)
		}
	case msgJobEvent:
		var ev models.JobEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			a.logger.Debug("malformed job event dropped", "error", err)
			return
		}
		if h.OnEvent != nil {
			h.OnEvent(ev)
		}
	default:
		// Unknown message types are ignored.
	}
}

func (a *Adapter) appendLog(entry models.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.logs) >= a.logCap {
		copy(a.logs, a.logs[1:])
		a.logs[len(a.logs)-1] = entry
		return
	}
	a.logs = append(a.logs, entry)
}

// streamURL builds the push-channel URL for kind. The token travels as a
// query parameter because the channel cannot set request headers.
func (a *Adapter) streamURL(kind Kind) string {
	base := a.baseURL
	base = strings.Replace(base, "http://", "ws://", 1)
	base = strings.Replace(base, "https://", "wss://", 1)

	u := base + "/api/stream/" + string(kind)
	if a.creds != nil {
		if token := a.creds.Token(); token != "" {
			u += "?token=" + url.QueryEscape(token)
		}
	}
	return u
}

// wsConn adapts a gorilla connection to the Conn interface.
type wsConn struct {
	*websocket.Conn
}

func (c wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.Conn.ReadMessage()
	return data, err
}

func dialWebsocket(ctx context.Context, rawURL string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return wsConn{conn}, nil
}
