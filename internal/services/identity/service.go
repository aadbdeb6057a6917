// Package identity resolves the stable identity a client presents when it
// connects: a signed-in account, or a GUID persisted on this machine.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/arenasession/internal/dependencies/clock"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/storage"
)

// Config holds configuration for identity resolution
type Config struct {
	// PrefsPath is where the local client GUID is persisted
	PrefsPath string
	// Profile distinguishes several clients sharing one machine
	Profile string
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{PrefsPath: defaultPrefsPath()}
}

// Service handles accounts and local identity
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger

	mu       sync.RWMutex
	signedIn *model.Account
}

// New creates a new identity Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.PrefsPath == "" {
		cfg.PrefsPath = DefaultConfig().PrefsPath
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "identity")),
	}
}

// Register creates an account with a bcrypt password hash
func (s *Service) Register(ctx context.Context, username, password string) (*model.Account, error) {
	_, err := s.storage.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil, model.ErrUsernameExists
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Identity:     model.PlayerIdentity("acct_" + uuid.NewString()),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("username", username))
	return account, nil
}

// SignIn authenticates an account; its identity is used until SignOut
func (s *Service) SignIn(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	s.mu.Lock()
	s.signedIn = account
	s.mu.Unlock()
	return account, nil
}

// SignOut falls back to the local identity
func (s *Service) SignOut() {
	s.mu.Lock()
	s.signedIn = nil
	s.mu.Unlock()
}

// PlayerIdentity returns the identity to present in the connection payload
func (s *Service) PlayerIdentity() (model.PlayerIdentity, error) {
	s.mu.RLock()
	account := s.signedIn
	s.mu.RUnlock()
	if account != nil {
		return account.Identity, nil
	}

	guid, err := s.LocalGUID()
	if err != nil {
		return "", err
	}
	if s.cfg.Profile != "" {
		return model.PlayerIdentity(guid + "_" + s.cfg.Profile), nil
	}
	return model.PlayerIdentity(guid), nil
}

// LocalGUID reads the machine's client GUID, creating it on first use
func (s *Service) LocalGUID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.cfg.PrefsPath)
	if err == nil {
		if id, perr := uuid.Parse(strings.TrimSpace(string(data))); perr == nil {
			return id.String(), nil
		}
		s.logger.Warn("client guid file is corrupt, regenerating", slog.String("path", s.cfg.PrefsPath))
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read client guid: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(s.cfg.PrefsPath), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(s.cfg.PrefsPath, []byte(id), 0600); err != nil {
		return "", err
	}
	return id, nil
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".arena", "client_guid")
	}
	return filepath.Join(home, ".arena", "client_guid")
}
