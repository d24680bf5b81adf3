package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/llopes04/fieldsync/internal/records"
)

var (
	// ErrUsernameTaken indicates another account already owns the
	// normalized username.
	ErrUsernameTaken = errors.New("users: username already registered")
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so a caller cannot probe for registered accounts.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrWeakPassword indicates the password failed the strength rules.
	ErrWeakPassword = errors.New("users: password must be at least 8 characters and contain a letter and a digit")
)

const minPasswordLength = 8

// Collection is the slice of the local record store the account service
// reads and writes.
type Collection interface {
	Load(ctx context.Context) ([]records.User, error)
	Save(ctx context.Context, list []records.User) error
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Users      Collection
	IDs        records.IDProvider
	Logger     *zap.Logger
	BcryptCost int
}

// Service manages local credential accounts. Accounts live in the same
// snapshot store as the other record kinds, so they travel through the
// reconciliation passes like any other collection.
type Service struct {
	users  Collection
	ids    records.IDProvider
	logger *zap.Logger
	cost   int
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, fmt.Errorf("users: collection required")
	}
	ids := cfg.IDs
	if ids == nil {
		ids = records.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: cfg.Users, ids: ids, logger: logger, cost: cost}, nil
}

// Register creates a new account. Usernames are unique under the same
// normalization the reconciliation engine uses, so "Carlos" and
// "carlos " are the same account.
func (s *Service) Register(ctx context.Context, name, username, password string) (records.User, error) {
	username = strings.TrimSpace(username)
	key := records.UserKey(username)
	if key == "" {
		return records.User{}, fmt.Errorf("users: username required")
	}
	if err := validatePassword(password); err != nil {
		return records.User{}, err
	}

	list, err := s.users.Load(ctx)
	if err != nil {
		return records.User{}, fmt.Errorf("users: load accounts: %w", err)
	}
	for _, existing := range list {
		if records.UserKey(existing.Username) == key {
			return records.User{}, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return records.User{}, fmt.Errorf("users: hash password: %w", err)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return records.User{}, fmt.Errorf("users: new id: %w", err)
	}
	account := records.User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Username:     username,
		PasswordHash: string(hash),
	}
	list = append(list, account)
	if err := s.users.Save(ctx, list); err != nil {
		return records.User{}, fmt.Errorf("users: save accounts: %w", err)
	}

	s.logger.Info("account registered",
		zap.String("operation", "users.register"),
		zap.String("username", key))
	return account, nil
}

// Authenticate checks a username and password pair against the stored
// accounts and returns the matching account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (records.User, error) {
	key := records.UserKey(username)
	if key == "" || password == "" {
		return records.User{}, ErrInvalidCredentials
	}

	list, err := s.users.Load(ctx)
	if err != nil {
		return records.User{}, fmt.Errorf("users: load accounts: %w", err)
	}
	for _, account := range list {
		if records.UserKey(account.Username) != key {
			continue
		}
		if account.PasswordHash == "" {
			// A synchronized account without a local hash cannot log
			// in until it re-registers a password.
			return records.User{}, ErrInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
			return records.User{}, ErrInvalidCredentials
		}
		return account, nil
	}
	return records.User{}, ErrInvalidCredentials
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hasLetter := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}
