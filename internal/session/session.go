package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-widget/internal/storage"

	"github.com/rs/zerolog"
)

const (
	keyPrefix    = "chatbot_session_id_"
	randomDigits = 9
)

var errNoStorage = errors.New("session: no storage configured")

// StorageKey is the storage key holding the session identifier of widgetID.
func StorageKey(widgetID string) string {
	return keyPrefix + widgetID
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRandom replaces the source of the random suffix. fn must return values
// in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(s *Store) {
		s.random = fn
	}
}

// Store hands out one stable conversation identifier per widget. It never
// fails: when the backing storage errors, identifiers live in memory for the
// rest of the process.
type Store struct {
	storage storage.Storage
	logger  zerolog.Logger
	now     func() time.Time
	random  func() float64

	mu       sync.Mutex
	fallback map[string]string
	warned   bool
}

func NewStore(st storage.Storage, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		logger:   logger,
		now:      time.Now,
		random:   rand.Float64,
		fallback: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateSessionID returns the stored identifier for widgetID, creating
// and storing one on first use.
func (s *Store) GetOrCreateSessionID(ctx context.Context, widgetID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.fallback[widgetID]; ok {
		return id
	}

	id, found, err := s.get(ctx, widgetID)
	if err == nil && found && id != "" {
		return id
	}

	id = s.newID()
	if err == nil {
		err = s.set(ctx, widgetID, id)
	}
	if err != nil {
		s.degrade(widgetID, id, err)
	}
	return id
}

// ResetSessionID replaces the identifier for widgetID with a new one.
func (s *Store) ResetSessionID(ctx context.Context, widgetID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if err := s.set(ctx, widgetID, id); err != nil {
		s.degrade(widgetID, id, err)
		return id
	}
	delete(s.fallback, widgetID)
	return id
}

func (s *Store) get(ctx context.Context, widgetID string) (string, bool, error) {
	if s.storage == nil {
		return "", false, errNoStorage
	}
	return s.storage.GetItem(ctx, StorageKey(widgetID))
}

func (s *Store) set(ctx context.Context, widgetID, id string) error {
	if s.storage == nil {
		return errNoStorage
	}
	return s.storage.SetItem(ctx, StorageKey(widgetID), id)
}

func (s *Store) degrade(widgetID, id string, err error) {
	s.fallback[widgetID] = id

	ev := s.logger.Debug()
	if !s.warned {
		s.warned = true
		ev = s.logger.Warn()
	}
	ev.Err(err).
		Str("widget_id", widgetID).
		Str("session_id", id).
		Msg("session storage unavailable, keeping identifier in memory")
}

func (s *Store) newID() string {
	return "session_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + base36Fraction(s.random(), randomDigits)
}

// base36Fraction renders the first n base-36 digits after the point of f.
func base36Fraction(f float64, n int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if f < 0 || f >= 1 {
		f = 0
	}

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		f *= 36
		d := int(f)
		if d > 35 {
			d = 35
		}
		b.WriteByte(digits[d])
		f -= float64(d)
	}
	return b.String()
}
