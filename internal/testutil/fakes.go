package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/service"
)

// ErrUploadFailed is returned by a MediaStore configured to fail
var ErrUploadFailed = errors.New("upload failed")

// MediaStore records uploads in memory and serves them from a fake CDN host
type MediaStore struct {
	mu       sync.Mutex
	Objects  map[string][]byte
	Deleted  []string
	FailNext bool
}

var _ service.MediaStore = (*MediaStore)(nil)

func NewMediaStore() *MediaStore {
	return &MediaStore{Objects: make(map[string][]byte)}
}

func (m *MediaStore) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return "", ErrUploadFailed
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	url := "https://cdn.test/" + objectPath
	m.Objects[url] = data
	return url, nil
}

func (m *MediaStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Objects, url)
	m.Deleted = append(m.Deleted, url)
	return nil
}

// Stored reports whether url currently holds an object
func (m *MediaStore) Stored(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[url]
	return ok
}

func (m *MediaStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

// ChannelStore returns canned aggregation results
type ChannelStore struct {
	Profiles map[string]*domain.ChannelProfile
	History  map[string][]domain.HistoryEntry
}

var _ repository.ChannelRepository = (*ChannelStore)(nil)

func NewChannelStore() *ChannelStore {
	return &ChannelStore{
		Profiles: make(map[string]*domain.ChannelProfile),
		History:  make(map[string][]domain.HistoryEntry),
	}
}

func (c *ChannelStore) ChannelProfile(_ context.Context, username, _ string) (*domain.ChannelProfile, error) {
	p, ok := c.Profiles[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *ChannelStore) WatchHistory(_ context.Context, userID string) ([]domain.HistoryEntry, error) {
	return append([]domain.HistoryEntry{}, c.History[userID]...), nil
}

// Ledger is an in-memory service.TokenLedger that ignores expiry
type Ledger struct {
	mu         sync.Mutex
	superseded map[string]time.Duration
}

var _ service.TokenLedger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{superseded: make(map[string]time.Duration)}
}

func (l *Ledger) Supersede(_ context.Context, digest string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.superseded[digest] = ttl
	return nil
}

func (l *Ledger) WasSuperseded(_ context.Context, digest string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.superseded[digest]
	return ok, nil
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.superseded)
}

// Limiter allows the first Limit requests per key and rejects the rest.
// A zero Limit allows everything.
type Limiter struct {
	mu     sync.Mutex
	Limit  int
	Err    error
	counts map[string]int
}

var _ service.Limiter = (*Limiter)(nil)

func (l *Limiter) Allow(_ context.Context, key string, limit int, window time.Duration) (service.Decision, error) {
	if l.Err != nil {
		return service.Decision{}, l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.counts == nil {
		l.counts = make(map[string]int)
	}
	if l.Limit > 0 {
		limit = l.Limit
	} else {
		return service.Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	if l.counts[key] >= limit {
		return service.Decision{Allowed: false, Limit: limit, RetryAfter: window}, nil
	}
	l.counts[key]++
	return service.Decision{Allowed: true, Limit: limit, Remaining: limit - l.counts[key]}, nil
}
