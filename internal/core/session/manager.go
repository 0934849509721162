// Package session owns which account is signed in for a session scope.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
	"github.com/ibrahimkeyboad/maxen/internal/core/security"
)

const (
	DemoEmail    = "demo@maxenstore.com"
	DemoPassword = "demo123"
	// DemoBalance is what the demo account holds once seeded.
	DemoBalance int64 = 2500

	minPasswordLength = 6
)

var languages = map[string]bool{"en": true, "ar": true}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Profile struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Language string `json:"language"`
}

// Wallet credits the welcome bonus.
type Wallet interface {
	GrantBonus(ctx context.Context, accountID string, amount int64, description string) (*domain.Transaction, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type IdentityVerifier interface {
	Verify(token string) (*security.Identity, error)
}

// Listener is told about every session change for accountID.
type Listener func(ctx context.Context, accountID string)

type record struct {
	AccountID string    `json:"account_id"`
	StartedAt time.Time `json:"started_at"`
}

func key(sessionID string) string {
	return "session:" + sessionID
}

type Manager struct {
	accounts ports.AccountStore
	wallet   Wallet
	kv       ports.KeyValueStore
	hasher   PasswordHasher
	identity IdentityVerifier
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// NewManager wires a session manager. identity may be nil, in which case
// every identity login is rejected.
func NewManager(accounts ports.AccountStore, wallet Wallet, kv ports.KeyValueStore, hasher PasswordHasher, identity IdentityVerifier, logger *slog.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		wallet:   wallet,
		kv:       kv,
		hasher:   hasher,
		identity: identity,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}
}

// OnChange registers l for login, registration and logout.
func (m *Manager) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(ctx context.Context, accountID string) {
	m.mu.RLock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, accountID)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks credentials and binds the account to sessionID.
func (m *Manager) Authenticate(ctx context.Context, sessionID string, creds Credentials) (*domain.Account, error) {
	acc, err := m.accounts.GetAccountByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("login rejected", "reason", "unknown email")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if acc.PasswordHash == "" || m.hasher.Compare(acc.PasswordHash, creds.Password) != nil {
		m.logger.Warn("login rejected", "reason", "password mismatch", "account_id", acc.ID)
		return nil, domain.ErrInvalidCredentials
	}

	if err := m.bind(ctx, sessionID, acc.ID); err != nil {
		return nil, err
	}
	m.logger.Info("login", "account_id", acc.ID)
	return acc, nil
}

// CreateAccount registers a new account, grants the welcome bonus and signs
// it in.
func (m *Manager) CreateAccount(ctx context.Context, sessionID string, p Profile) (*domain.Account, error) {
	p.Email = normalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if p.Language == "" {
		p.Language = "en"
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	hash, err := m.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc, err := m.register(ctx, p, hash)
	if err != nil {
		return nil, err
	}
	if err := m.bind(ctx, sessionID, acc.ID); err != nil {
		return nil, err
	}
	return acc, nil
}

func validateProfile(p Profile) error {
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", domain.ErrInvalidProfile)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidProfile)
	}
	if len(p.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidProfile, minPasswordLength)
	}
	if !languages[p.Language] {
		return fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidProfile, p.Language)
	}
	return nil
}

// register stores the account and credits the welcome bonus before anything
// else can touch its wallet.
func (m *Manager) register(ctx context.Context, p Profile, passwordHash string) (*domain.Account, error) {
	acc := &domain.Account{
		ID:           uuid.NewString(),
		Email:        p.Email,
		Name:         p.Name,
		Language:     p.Language,
		PasswordHash: passwordHash,
		CreatedAt:    m.now(),
	}
	if err := m.accounts.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	if _, err := m.wallet.GrantBonus(ctx, acc.ID, domain.WelcomeBonus, "Welcome bonus"); err != nil {
		// Free the email so the sign-up can be retried.
		if delErr := m.accounts.DeleteAccount(ctx, acc.ID); delErr != nil {
			m.logger.Error("failed to remove account after bonus failure", "account_id", acc.ID, "error", delErr)
		}
		return nil, fmt.Errorf("grant welcome bonus: %w", err)
	}
	acc.CoinBalance = domain.WelcomeBonus

	m.logger.Info("account created", "account_id", acc.ID, "bonus", domain.WelcomeBonus)
	return acc, nil
}

// AuthenticateIdentity signs in with a third-party identity token, creating
// the account on first use. A token that fails verification never grants a
// session.
func (m *Manager) AuthenticateIdentity(ctx context.Context, sessionID, idToken string) (*domain.Account, error) {
	if m.identity == nil {
		return nil, domain.ErrInvalidCredentials
	}
	id, err := m.identity.Verify(idToken)
	if err != nil {
		m.logger.Warn("identity login rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}

	acc, err := m.accounts.GetAccountByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		name := id.Name
		if name == "" {
			name, _, _ = strings.Cut(id.Email, "@")
		}
		acc, err = m.register(ctx, Profile{Email: id.Email, Name: name, Language: "en"}, "")
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if err := m.bind(ctx, sessionID, acc.ID); err != nil {
		return nil, err
	}
	m.logger.Info("identity login", "account_id", acc.ID, "subject", id.Subject)
	return acc, nil
}

func (m *Manager) bind(ctx context.Context, sessionID, accountID string) error {
	data, err := json.Marshal(record{AccountID: accountID, StartedAt: m.now()})
	if err != nil {
		return err
	}
	if err := m.kv.Set(ctx, key(sessionID), data); err != nil {
		return err
	}
	m.notify(ctx, accountID)
	return nil
}

// CurrentAccount returns the account bound to sessionID with a fresh balance,
// or nil when there is none. A session store that cannot be read counts as no
// session.
func (m *Manager) CurrentAccount(ctx context.Context, sessionID string) (*domain.Account, error) {
	accountID, ok := m.lookup(ctx, sessionID)
	if !ok {
		return nil, nil
	}
	acc, err := m.accounts.GetAccount(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (string, bool) {
	data, err := m.kv.Get(ctx, key(sessionID))
	if err != nil {
		m.logger.Warn("session restore failed, treating as signed out", "error", err)
		return "", false
	}
	if data == nil {
		return "", false
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.AccountID == "" {
		m.logger.Warn("discarding unreadable session record", "error", err)
		return "", false
	}
	return rec.AccountID, true
}

// EndSession signs the session out. Ending a session that does not exist is
// not an error.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	accountID, ok := m.lookup(ctx, sessionID)
	if err := m.kv.Delete(ctx, key(sessionID)); err != nil {
		return err
	}
	if ok {
		m.notify(ctx, accountID)
		m.logger.Info("logout", "account_id", accountID)
	}
	return nil
}

// SeedDemo makes sure the demo account exists with its starting balance.
func (m *Manager) SeedDemo(ctx context.Context) (*domain.Account, error) {
	acc, err := m.accounts.GetAccountByEmail(ctx, DemoEmail)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := m.hasher.Hash(DemoPassword)
	if err != nil {
		return nil, err
	}
	acc, err = m.register(ctx, Profile{Email: DemoEmail, Name: "Demo User", Language: "en"}, hash)
	if err != nil {
		return nil, err
	}
	if _, err := m.wallet.GrantBonus(ctx, acc.ID, DemoBalance-domain.WelcomeBonus, "Demo credit"); err != nil {
		return nil, err
	}
	acc.CoinBalance = DemoBalance
	return acc, nil
}
