// Package session tracks hosted-page interactions between the moment a merchant
// request is accepted and the moment its outcome is known.
package session

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/metrics"
)

type Kind string

const (
	KindPayment           Kind = "payment"
	KindRegisterCardToken Kind = "register_card_token"
)

type OperationStatus string

const (
	StatusSuccess OperationStatus = "Success"
	StatusFail    OperationStatus = "Fail"
)

// Descriptor is the immutable part of a session handed out to handlers.
type Descriptor struct {
	ID              uuid.UUID
	Kind            Kind
	Amount          int64
	NotificationURL string
	SuccessURL      string
	FailURL         string
	StoreCard       domain.CardNumber
	CreatedAt       time.Time
}

// Outcome is delivered exactly once to whoever holds the session's channel.
type Outcome struct {
	Status    OperationStatus
	CardToken string
	// Reason is for operators only and never leaves the process.
	Reason string
}

func Success() Outcome { return Outcome{Status: StatusSuccess} }

func Fail(reason string) Outcome { return Outcome{Status: StatusFail, Reason: reason} }

const shardCount = 32

type entry struct {
	desc    Descriptor
	claimed bool
	done    chan Outcome
}

type shard struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// Registry is a sharded map of live sessions; operations on different ids
// contend only when the ids land in the same shard.
type Registry struct {
	shards [shardCount]shard
	cfg    Config
	logger *slog.Logger
}

func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{cfg: cfg, logger: logger}
	for i := range r.shards {
		r.shards[i].sessions = make(map[uuid.UUID]*entry)
	}
	return r
}

func (r *Registry) shardFor(id uuid.UUID) *shard {
	return &r.shards[binary.BigEndian.Uint32(id[12:])%shardCount]
}

// Create stores d under a fresh id. The returned channel receives the outcome
// once and is then closed.
func (r *Registry) Create(d Descriptor) (uuid.UUID, <-chan Outcome) {
	done := make(chan Outcome, 1)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.cfg.Now()
	}

	for {
		id := uuid.New()
		s := r.shardFor(id)

		s.mu.Lock()
		if _, taken := s.sessions[id]; taken {
			s.mu.Unlock()
			continue
		}
		d.ID = id
		s.sessions[id] = &entry{desc: d, done: done}
		s.mu.Unlock()

		metrics.SessionsLive.Inc()
		return id, done
	}
}

// Lookup returns the descriptor of an unclaimed session without consuming it.
func (r *Registry) Lookup(id uuid.UUID) (Descriptor, error) {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.claimed || r.expired(e, r.cfg.Now()) {
		return Descriptor{}, domain.ErrSessionNotFound
	}
	return e.desc, nil
}

// Claim hands out the descriptor at most once per session. Sessions past
// their TTL cannot be claimed; a claimed session is resolved by its claimer.
func (r *Registry) Claim(id uuid.UUID) (Descriptor, error) {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.claimed || r.expired(e, r.cfg.Now()) {
		return Descriptor{}, domain.ErrSessionNotFound
	}
	e.claimed = true
	return e.desc, nil
}

// Resolve delivers out to the session's channel and removes the session.
// Resolving an unknown id is a no-op; the return value reports whether a live
// session was resolved.
func (r *Registry) Resolve(id uuid.UUID, out Outcome) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	deliver(e, out)
	return true
}

func deliver(e *entry, out Outcome) {
	e.done <- out
	close(e.done)

	metrics.SessionsLive.Dec()
	metrics.SessionsResolved.WithLabelValues(string(out.Status)).Inc()
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return now.Sub(e.desc.CreatedAt) >= r.cfg.TTL
}

func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.sessions)
		s.mu.Unlock()
	}
	return n
}

// Sweep fails unclaimed sessions older than the TTL. Claimed sessions are
// left to their claimer. Expired entries are removed under the shard lock, so
// a session is either claimed or swept, never both.
func (r *Registry) Sweep(now time.Time) int {
	var expired []*entry
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for id, e := range s.sessions {
			if !e.claimed && r.expired(e, now) {
				delete(s.sessions, id)
				expired = append(expired, e)
			}
		}
		s.mu.Unlock()
	}

	for _, e := range expired {
		deliver(e, Fail("expired"))
	}
	return len(expired)
}

func (r *Registry) Run(ctx context.Context) {
	r.logger.Info("session sweeper started", "interval", r.cfg.SweepInterval, "ttl", r.cfg.TTL)

	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(r.cfg.Now()); n > 0 {
				r.logger.Info("expired sessions resolved", "count", n)
			}
		}
	}
}
