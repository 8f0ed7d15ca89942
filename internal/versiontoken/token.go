// Package versiontoken issues and verifies optimistic concurrency tokens.
//
// A token is an HS256 JWS whose claims carry the entity identity, a BLAKE3
// digest of the entity's canonical projection and, as subject, the caller
// it was issued to. Issuing is deterministic, so verification re-issues a
// token over the current entity and compares the two byte for byte.
package versiontoken

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"cinema-core/internal/apperr"
	"cinema-core/internal/data/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zeebo/blake3"
)

const minKeyLen = 16

var ErrWeakKey = errors.New("version token key is too short")

// Protocol is what the services depend on. Verify returns nil,
// apperr.ErrStaleVersion or apperr.ErrForgedVersion.
type Protocol interface {
	Issue(e entity.Canonical, caller string) (string, error)
	Verify(token string, e entity.Canonical, caller string) error
}

type claims struct {
	Entity string `json:"eid"`
	Kind   string `json:"knd"`
	Digest string `json:"dig"`
	jwt.RegisteredClaims
}

type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakKey, minKeyLen)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Digest returns the hex BLAKE3 digest of e's canonical encoding.
func Digest(e entity.Canonical) (string, error) {
	b, err := entity.CanonicalBytes(e)
	if err != nil {
		return "", fmt.Errorf("canonical encoding: %w", err)
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Issue binds the current state of e to caller. Tokens carry no issue or
// expiry time, so the same state and caller always give the same token.
func (s *Signer) Issue(e entity.Canonical, caller string) (string, error) {
	digest, err := Digest(e)
	if err != nil {
		return "", err
	}
	c := claims{
		Entity:           e.Key().String(),
		Kind:             e.Kind(),
		Digest:           digest,
		RegisteredClaims: jwt.RegisteredClaims{Subject: caller},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign version token: %w", err)
	}
	return signed, nil
}

// Verify checks token against the state of e the caller is about to
// overwrite. A token that does not parse, is signed with another key, was
// issued to another caller or names another entity is forged; a genuine
// token whose digest no longer matches is stale.
func (s *Signer) Verify(token string, e entity.Canonical, caller string) error {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", apperr.ErrForgedVersion, err)
	}
	if c.Subject != caller {
		return fmt.Errorf("%w: issued to another caller", apperr.ErrForgedVersion)
	}
	if c.Kind != e.Kind() || c.Entity != e.Key().String() {
		return fmt.Errorf("%w: issued for another entity", apperr.ErrForgedVersion)
	}

	expected, err := s.Issue(e, caller)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return fmt.Errorf("%s %s: %w", e.Kind(), e.Key(), apperr.ErrStaleVersion)
	}
	return nil
}
