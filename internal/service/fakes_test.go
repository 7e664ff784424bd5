package service

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
	appErrors "github.com/noah-isme/learnpath-api/pkg/errors"
	"github.com/noah-isme/learnpath-api/pkg/jobs"
	"github.com/noah-isme/learnpath-api/pkg/mailer"
)

type fakeTokenStore struct {
	verification map[string]string
	resends      map[string]int64
	reset        map[string]string
	refresh      map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		verification: map[string]string{},
		resends:      map[string]int64{},
		reset:        map[string]string{},
		refresh:      map[string]string{},
	}
}

func (f *fakeTokenStore) SaveVerificationCode(_ context.Context, email, code string, _ time.Duration) error {
	f.verification[email] = code
	return nil
}

func (f *fakeTokenStore) VerificationCode(_ context.Context, email string) (string, error) {
	return lookupToken(f.verification, email)
}

func (f *fakeTokenStore) ClearVerification(_ context.Context, email string) error {
	delete(f.verification, email)
	delete(f.resends, email)
	return nil
}

func (f *fakeTokenStore) IncrementResend(_ context.Context, email string, _ time.Duration) (int64, error) {
	f.resends[email]++
	return f.resends[email], nil
}

func (f *fakeTokenStore) SaveResetCode(_ context.Context, email, code string, _ time.Duration) error {
	f.reset[email] = code
	return nil
}

func (f *fakeTokenStore) ResetCode(_ context.Context, email string) (string, error) {
	return lookupToken(f.reset, email)
}

func (f *fakeTokenStore) ClearResetCode(_ context.Context, email string) error {
	delete(f.reset, email)
	return nil
}

func (f *fakeTokenStore) SaveRefreshToken(_ context.Context, userID, token string, _ time.Duration) error {
	f.refresh[userID] = token
	return nil
}

func (f *fakeTokenStore) RefreshToken(_ context.Context, userID string) (string, error) {
	return lookupToken(f.refresh, userID)
}

func (f *fakeTokenStore) ClearRefreshToken(_ context.Context, userID string) error {
	delete(f.refresh, userID)
	return nil
}

func lookupToken(m map[string]string, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", repository.ErrTokenNotFound
	}
	return v, nil
}

type sentMail struct {
	template string
	to       mail.Address
	data     map[string]string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, template string, to mail.Address, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{template: template, to: to, data: data})
	return nil
}

func (f *fakeNotifier) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeAudit struct {
	logs []models.AuditLog
}

func (f *fakeAudit) Create(_ context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAudit) actions() []string {
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

// memoryCache is a CacheRepository backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return raw, nil
}

func (m *memoryCache) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = payload
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

type fakeArchive struct {
	kind string
	name string
	data []byte
}

func (f *fakeArchive) Archive(kind, name string, data []byte) (string, error) {
	f.kind, f.name, f.data = kind, name, data
	return kind + "/2025-01-01/" + name, nil
}

type fakeQueue struct {
	jobs []jobs.Job
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSender struct {
	messages []mailer.Message
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(TokenConfig{AccessSecret: "test-secret", Issuer: "learnpath-test", AccessExpiry: time.Minute, RefreshExpiry: time.Hour})
}
