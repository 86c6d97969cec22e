// Package service contains the application services behind the transport layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avagner/authcore/internal/bulkhead"
	"github.com/avagner/authcore/internal/crypto"
	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/limiter"
	"github.com/avagner/authcore/internal/model"
	"github.com/avagner/authcore/internal/repository"
	"github.com/avagner/authcore/internal/token"
)

// Registration limits.
const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
)

// AuthService defines account and session operations.
type AuthService interface {
	// Register creates a new active user with a hashed credential.
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// Login applies rate limiting and authenticates the user by password.
	Login(ctx context.Context, username, password, ip string) (model.Token, *model.User, error)
	// Authenticate resolves a bearer token to the subject user id.
	Authenticate(ctx context.Context, tokenString string) (uuid.UUID, error)
	// CurrentUser resolves a bearer token to the full, active user record.
	CurrentUser(ctx context.Context, tokenString string) (*model.User, error)
	// ChangePassword replaces the credential after verifying the current one.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	hasher    *crypto.Hasher
	tokens    *token.Issuer
	gate      *bulkhead.Bulkhead
	lim       limiter.Limiter
	accessTTL time.Duration
	log       *zap.Logger

	// decoy is a credential for a throwaway random password. Logins for
	// unknown usernames verify against it so the miss path burns the same
	// hashing work as a real mismatch.
	decoy model.Credential
}

// NewAuthService constructs AuthService with required dependencies.
// lim may be nil to disable login throttling; log may be nil.
func NewAuthService(users repository.UserRepository, hasher *crypto.Hasher, tokens *token.Issuer, gate *bulkhead.Bulkhead, lim limiter.Limiter, accessTTL time.Duration, log *zap.Logger) (*AuthServiceImpl, error) {
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access ttl must be positive: %w", errs.ErrInvalidInput)
	}
	if gate == nil {
		gate = bulkhead.New(0, 0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	decoyPwd, err := crypto.RandBytes(32)
	if err != nil {
		return nil, fmt.Errorf("decoy password: %w", err)
	}
	decoy, err := hasher.Hash(string(decoyPwd))
	if err != nil {
		return nil, fmt.Errorf("decoy credential: %w", err)
	}
	return &AuthServiceImpl{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		gate:      gate,
		lim:       lim,
		accessTTL: accessTTL,
		log:       log,
		decoy:     decoy,
	}, nil
}

// Register creates a new user record with a freshly salted credential.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	cred, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:         uid,
		Username:   username,
		Email:      email,
		Credential: cred,
		Active:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func validateRegistration(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters: %w", minUsernameLen, maxUsernameLen, errs.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email address: %w", errs.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, errs.ErrInvalidInput)
	}
	return nil
}

// Login authenticates with rate limiting by (username, ip). Unknown usernames
// and wrong passwords answer identically, in kind and in cost.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.Token, *model.User, error) {
	if username == "" || password == "" {
		return model.Token{}, nil, fmt.Errorf("empty username/password: %w", errs.ErrInvalidInput)
	}
	ipHash := limiter.HashIP(ip)

	if s.lim != nil {
		allowed, _, err := s.lim.Allow(ctx, username, ipHash)
		if err != nil {
			return model.Token{}, nil, fmt.Errorf("limiter allow: %w", err)
		}
		if !allowed {
			return model.Token{}, nil, errs.ErrRateLimited
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		if _, derr := s.verify(ctx, password, s.decoy); derr != nil {
			return model.Token{}, nil, derr
		}
		return model.Token{}, nil, s.recordFailure(ctx, username, ipHash)
	}
	if err != nil {
		return model.Token{}, nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.verify(ctx, password, u.Credential)
	if err != nil {
		if errors.Is(err, errs.ErrCorruptCredential) {
			s.log.Error("stored credential unreadable", zap.String("user_id", u.ID.String()))
		}
		return model.Token{}, nil, err
	}
	if !ok {
		return model.Token{}, nil, s.recordFailure(ctx, username, ipHash)
	}
	if !u.Active {
		return model.Token{}, nil, errs.ErrUserInactive
	}

	if s.lim != nil {
		// Best-effort: a failed counter reset must not fail the login.
		_ = s.lim.Success(ctx, username, ipHash)
	}

	tok, err := s.tokens.Issue(u.ID, s.accessTTL)
	if err != nil {
		return model.Token{}, nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

// recordFailure counts a failed attempt and reports it as either a lockout or
// a generic credential failure.
func (s *AuthServiceImpl) recordFailure(ctx context.Context, username string, ipHash []byte) error {
	if s.lim != nil {
		if blocked, _, err := s.lim.Failure(ctx, username, ipHash); err == nil && blocked {
			return errs.ErrRateLimited
		}
	}
	return errs.ErrInvalidCredentials
}

// Authenticate resolves a bearer token to the subject user id. Each failure
// kind is logged under its internal code; callers only ever see the projected
// signal.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, tokenString string) (uuid.UUID, error) {
	uid, err := s.tokens.Verify(tokenString)
	if err != nil {
		s.log.Debug("token rejected", zap.String("code", errs.Code(err)))
		return uuid.Nil, errs.Public(err)
	}
	return uid, nil
}

// CurrentUser loads the account behind a bearer token, rejecting tokens whose
// subject has since been removed or deactivated.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, tokenString string) (*model.User, error) {
	uid, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, errs.ErrNotFound) {
		// Subject vanished after the token was issued.
		return nil, errs.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.Active {
		return nil, errs.ErrUserInactive
	}
	return u, nil
}

// ChangePassword verifies the current password and stores a credential for
// the new one. The caller is already authenticated, so no decoy is needed.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("empty user id: %w", errs.ErrInvalidInput)
	}
	if len(next) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, errs.ErrInvalidInput)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	ok, err := s.verify(ctx, current, u.Credential)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidCredentials
	}
	cred, err := s.hash(ctx, next)
	if err != nil {
		return err
	}
	return s.users.UpdateCredential(ctx, userID, cred)
}

// hash runs password hashing behind the gate so a burst of registrations
// cannot exhaust memory on argon2id.
func (s *AuthServiceImpl) hash(ctx context.Context, password string) (model.Credential, error) {
	var cred model.Credential
	err := s.gate.Do(ctx, func() error {
		var herr error
		cred, herr = s.hasher.Hash(password)
		return herr
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// verify runs credential verification behind the same gate; it costs as much
// as hashing.
func (s *AuthServiceImpl) verify(ctx context.Context, password string, cred model.Credential) (bool, error) {
	var ok bool
	err := s.gate.Do(ctx, func() error {
		var verr error
		ok, verr = s.hasher.Verify(password, cred)
		return verr
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
