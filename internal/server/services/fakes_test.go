package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/applications"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/users"
)

// -------- in-memory store --------

// memStore keeps every table in maps. Failures can be injected per
// operation name, e.g. fail["Users.Create"].
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
	tokens map[int64]models.SingleUseToken
	apps   map[int64]models.JobApplication
	fail   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]models.User{},
		tokens: map[int64]models.SingleUseToken{},
		apps:   map[int64]models.JobApplication{},
		fail:   map[string]error{},
	}
}

type memSnapshot struct {
	nextID int64
	users  map[int64]models.User
	tokens map[int64]models.SingleUseToken
	apps   map[int64]models.JobApplication
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		nextID: s.nextID,
		users:  make(map[int64]models.User, len(s.users)),
		tokens: make(map[int64]models.SingleUseToken, len(s.tokens)),
		apps:   make(map[int64]models.JobApplication, len(s.apps)),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.tokens {
		snap.tokens[k] = v
	}
	for k, v := range s.apps {
		snap.apps[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.users = snap.users
	s.tokens = snap.tokens
	s.apps = snap.apps
}

func (s *memStore) failure(op string) error {
	return s.fail[op]
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) userByEmail(email string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

func (s *memStore) tokensFor(userID int64, purpose models.TokenPurpose) []models.SingleUseToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SingleUseToken
	for _, t := range s.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// expireTokens moves every token's expiry into the past.
func (s *memStore) expireTokens(purpose models.TokenPurpose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.Purpose == purpose {
			t.ExpiresAt = time.Now().Add(-time.Second)
			s.tokens[id] = t
		}
	}
}

// -------- fake connection --------

// memConn serializes transactions with a mutex, which gives the same
// guarantee SELECT ... FOR UPDATE gives on a single token row, and rolls
// the store back when the unit of work fails.
type memConn struct {
	txMu  sync.Mutex
	store *memStore
	txs   int
}

var errNoSQL = errors.New("memConn does not run SQL")

func (c *memConn) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}
func (c *memConn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (c *memConn) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (c *memConn) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	c.txs++

	snap := c.store.snapshot()
	if err := fn(ctx, c); err != nil {
		c.store.restore(snap)
		return err
	}
	return nil
}

// -------- repositories --------

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := r.s.failure("Users.Create"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = r.s.id()
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	return u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.s.failure("Users.GetByEmail"); err != nil {
		return nil, err
	}
	u, ok := r.s.userByEmail(email)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r memUsers) List(ctx context.Context) ([]*models.User, error) {
	if err := r.s.failure("Users.List"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

func (r memUsers) Enable(ctx context.Context, id int64) error {
	return r.update(id, func(u *models.User) { u.Enabled, u.Verified = true, true })
}

func (r memUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r memUsers) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	return r.update(id, func(u *models.User) { u.DisplayName = name })
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, t *models.SingleUseToken) error {
	if err := r.s.failure("Tokens.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tokens {
		if existing.Purpose == t.Purpose && existing.Token == t.Token {
			return common.ErrorAlreadyExists
		}
	}
	t.ID = r.s.id()
	r.s.tokens[t.ID] = *t
	return nil
}

func (r memTokens) FindForUpdate(ctx context.Context, purpose models.TokenPurpose, token string) (*models.SingleUseToken, error) {
	if err := r.s.failure("Tokens.FindForUpdate"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.Purpose == purpose && t.Token == token {
			t := t
			return &t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memTokens) MarkConsumed(ctx context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || t.ConsumedAt != nil {
		return common.ErrorNotFound
	}
	t.ConsumedAt = &at
	r.s.tokens[id] = t
	return nil
}

type memApps struct{ s *memStore }

func (r memApps) Create(ctx context.Context, a *models.JobApplication) error {
	if err := r.s.failure("Applications.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.s.apps[a.ID] = *a
	return nil
}

func (r memApps) GetByID(ctx context.Context, id int64) (*models.JobApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r memApps) ListByUser(ctx context.Context, userID int64) ([]*models.JobApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.JobApplication
	for _, a := range r.s.apps {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memApps) update(id int64, fn func(a *models.JobApplication)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&a)
	r.s.apps[id] = a
	return nil
}

func (r memApps) Update(ctx context.Context, a *models.JobApplication) error {
	return r.update(a.ID, func(cur *models.JobApplication) { *cur = *a })
}

func (r memApps) UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, at time.Time) error {
	return r.update(id, func(a *models.JobApplication) { a.Status, a.UpdatedAt = status, at })
}

func (r memApps) SetResumeKey(ctx context.Context, id int64, key string, at time.Time) error {
	if err := r.s.failure("Applications.SetResumeKey"); err != nil {
		return err
	}
	return r.update(id, func(a *models.JobApplication) { a.ResumeKey, a.UpdatedAt = &key, at })
}

func (r memApps) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.apps[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.apps, id)
	return nil
}

type memRepoManager struct{ s *memStore }

var _ repomanager.RepositoryManager = memRepoManager{}

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m memRepoManager) Users(dbx.DBTX) users.Repository               { return memUsers{m.s} }
func (m memRepoManager) Tokens(dbx.DBTX) tokens.Repository             { return memTokens{m.s} }
func (m memRepoManager) Applications(dbx.DBTX) applications.Repository { return memApps{m.s} }

// -------- mailer --------

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var linkToken = regexp.MustCompile(`\?token=([0-9a-fA-F-]+)`)

// lastToken extracts the token from the most recent email sent to addr.
func (m *fakeMailer) lastToken(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to != addr {
			continue
		}
		match := linkToken.FindStringSubmatch(m.sent[i].body)
		if match == nil {
			t.Fatalf("no token link in mail body: %s", m.sent[i].body)
		}
		return match[1]
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// -------- resume storage --------

type fakeStorage struct {
	putKeys []string
	getKeys []string
	err     error
}

func (f *fakeStorage) PresignPut(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.putKeys = append(f.putKeys, key)
	return "http://storage/put/" + key, nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.getKeys = append(f.getKeys, key)
	return "http://storage/get/" + key, nil
}
