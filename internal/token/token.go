// Package token issues and verifies HS256 bearer tokens.
//
// Tokens are stateless: validity is determined by signature and expiry alone,
// so there is no server-side session record to look up or clean. The flip
// side is that a stolen token stays usable until it expires; an optional
// Denylist narrows that window by refusing individual token ids at
// verification time.
package token

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
)

// MinKeyLen is the smallest accepted HS256 signing key.
const MinKeyLen = 32

// Issuer mints and verifies tokens under a single signing key. Stateless and
// safe for concurrent use; the optional denylist carries its own lock.
type Issuer struct {
	signKey []byte
	deny    *Denylist
}

// NewIssuer constructs an Issuer. The key is copied, so later mutation of the
// caller's slice does not affect issued or verified tokens. deny may be nil,
// which disables revocation.
func NewIssuer(signKey []byte, deny *Denylist) (*Issuer, error) {
	if len(signKey) < MinKeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes: %w", MinKeyLen, errs.ErrInvalidInput)
	}
	return &Issuer{signKey: bytes.Clone(signKey), deny: deny}, nil
}

// Issue creates a signed token for subject, valid for ttl from now.
func (i *Issuer) Issue(subject uuid.UUID, ttl time.Duration) (model.Token, error) {
	if subject == uuid.Nil {
		return model.Token{}, fmt.Errorf("issue token: empty subject: %w", errs.ErrInvalidInput)
	}
	if ttl <= 0 {
		return model.Token{}, fmt.Errorf("issue token: ttl must be positive: %w", errs.ErrInvalidInput)
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Token{}, fmt.Errorf("issue token: jti: %w", err)
	}

	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        jti.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signKey)
	if err != nil {
		return model.Token{}, fmt.Errorf("issue token: sign: %w", err)
	}
	return model.Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Verify checks tokenString and returns its subject. Failures are reported
// in a fixed precedence: errs.ErrTokenSignature before any claim inspection,
// then errs.ErrTokenExpired, then errs.ErrTokenRevoked for a denylisted id;
// anything structurally broken is errs.ErrTokenMalformed. Expiry is strict,
// no leeway is granted.
func (i *Issuer) Verify(tokenString string) (uuid.UUID, error) {
	claims, err := i.parse(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if i.deny != nil && claims.ID != "" && i.deny.Contains(claims.ID) {
		return uuid.Nil, fmt.Errorf("verify token: %w", errs.ErrTokenRevoked)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("verify token: subject: %w", errs.ErrTokenMalformed)
	}
	return id, nil
}

// Revoke denylists a still-valid token until its natural expiry, after which
// the entry is dropped anyway. Requires a Denylist; tokens that no longer
// verify cannot be revoked and report their verification failure instead.
func (i *Issuer) Revoke(tokenString string) error {
	if i.deny == nil {
		return fmt.Errorf("revoke token: no denylist configured: %w", errs.ErrInvalidInput)
	}
	claims, err := i.parse(tokenString)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return fmt.Errorf("revoke token: no token id: %w", errs.ErrInvalidInput)
	}
	i.deny.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

func (i *Issuer) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return i.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", classify(err))
	}
	return &claims, nil
}

// classify maps jwt parser errors onto the package's sentinel kinds. The
// signature check comes first so a tampered token never reports a claim
// problem.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return errs.ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return errs.ErrTokenExpired
	default:
		return errs.ErrTokenMalformed
	}
}
