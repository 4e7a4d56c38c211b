package gateway

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a thread-safe in-process Gateway for development and tests.
// Inserted records get a generated id and created_at; inserts replaying an
// idempotency key already seen are dropped silently.
type Memory struct {
	mu       sync.RWMutex
	tables   map[string][]Record
	sessions map[string]*Session
	objects  map[string][]byte
	seenKeys map[string]bool
	defaults map[string]Record
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string][]Record),
		sessions: make(map[string]*Session),
		objects:  make(map[string][]byte),
		seenKeys: make(map[string]bool),
		defaults: make(map[string]Record),
	}
}

// AddSession registers an access token → session mapping.
func (m *Memory) AddSession(token string, sess *Session) {
	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()
}

// SetDefaults registers server-assigned column defaults for a table
// (e.g. appointments get status "scheduled").
func (m *Memory) SetDefaults(table string, defaults Record) {
	m.mu.Lock()
	m.defaults[table] = defaults
	m.mu.Unlock()
}

func (m *Memory) Session(_ context.Context, accessToken string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[accessToken]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		return nil, ErrNotAuthenticated
	}
	out := *sess
	return &out, nil
}

func (m *Memory) Select(_ context.Context, table string, opts SelectOptions) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Record
	for _, rec := range m.tables[table] {
		if !matches(rec, opts) {
			continue
		}
		matched = append(matched, copyRecord(rec))
	}

	if opts.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a := str(matched[i][opts.OrderBy])
			b := str(matched[j][opts.OrderBy])
			if opts.Descending {
				return a > b
			}
			return a < b
		})
	}
	return matched, nil
}

func (m *Memory) Count(ctx context.Context, table string, opts SelectOptions) (int, error) {
	rows, err := m.Select(ctx, table, opts)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (m *Memory) Insert(_ context.Context, table string, rec Record, idempotencyKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idempotencyKey != "" {
		if m.seenKeys[idempotencyKey] {
			return nil
		}
		m.seenKeys[idempotencyKey] = true
	}

	stored := copyRecord(rec)
	for col, v := range m.defaults[table] {
		if _, set := stored[col]; !set {
			stored[col] = v
		}
	}
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.New().String()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	m.tables[table] = append(m.tables[table], stored)
	return nil
}

func (m *Memory) Upload(_ context.Context, bucket, key, _ string, r io.Reader) (string, error) {
	if bucket == "" {
		return "", ErrBucketRequired
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading object: %w", err)
	}
	m.mu.Lock()
	m.objects[bucket+"/"+key] = data
	m.mu.Unlock()
	return "memory://" + bucket + "/" + key, nil
}

// Object returns an uploaded object's bytes for test assertions.
func (m *Memory) Object(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+key]
	return data, ok
}

func matches(rec Record, opts SelectOptions) bool {
	for col, want := range opts.Equals {
		if str(rec[col]) != want {
			return false
		}
	}
	for col, min := range opts.AtLeast {
		if strings.Compare(str(rec[col]), min) < 0 {
			return false
		}
	}
	return true
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
