// Package keys owns the authority's RSA signing keys: the current key used to
// mint access tokens, the staged key published ahead of its first use, and
// the retired keys that stay published until every token they signed has
// expired.
package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only signing algorithm the authority uses.
const Algorithm = "RS256"

const MinKeyBits = 2048

// SigningKey is one RSA key pair with its identifier. RetiredAt is zero
// while the key is current.
type SigningKey struct {
	ID        string
	Key       *rsa.PrivateKey
	CreatedAt time.Time
	RetiredAt time.Time
}

type Provider struct {
	mu      sync.RWMutex
	current SigningKey
	next    *SigningKey
	retired []SigningKey

	bits    int
	overlap time.Duration

	now      func() time.Time
	generate func(bits int) (*rsa.PrivateKey, error)
}

// NewProvider starts a provider with key as the current signing key, or with
// a freshly generated key of the given size when key is nil. Retired keys
// stay published for overlap after they stop signing.
func NewProvider(key *rsa.PrivateKey, bits int, overlap time.Duration) (*Provider, error) {
	p := &Provider{
		bits:     bits,
		overlap:  overlap,
		now:      time.Now,
		generate: generateKey,
	}

	if key == nil {
		var err error
		if key, err = p.generate(bits); err != nil {
			return nil, err
		}
	}

	sk, err := newSigningKey(key, p.now())
	if err != nil {
		return nil, err
	}
	p.current = sk
	return p, nil
}

func generateKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return key, nil
}

func newSigningKey(key *rsa.PrivateKey, now time.Time) (SigningKey, error) {
	id, err := KeyID(&key.PublicKey)
	if err != nil {
		return SigningKey{}, err
	}
	return SigningKey{ID: id, Key: key, CreatedAt: now}, nil
}

// KeyID derives a stable kid from the RFC 7638 SHA-256 thumbprint of pub.
func KeyID(pub *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// Current returns the kid and private key new tokens must be signed with.
func (p *Provider) Current() (string, *rsa.PrivateKey) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.ID, p.current.Key
}

// Next returns the kid of the staged key, or "" when none is staged.
func (p *Provider) Next() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.next == nil {
		return ""
	}
	return p.next.ID
}

// Stage generates the key the next rotation will switch to and publishes it
// without signing anything with it, so verifiers can learn it in advance.
// Staging twice keeps the first staged key.
func (p *Provider) Stage() (SigningKey, error) {
	p.mu.RLock()
	staged := p.next
	p.mu.RUnlock()
	if staged != nil {
		return *staged, nil
	}

	key, err := p.generate(p.bits)
	if err != nil {
		return SigningKey{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next != nil {
		return *p.next, nil
	}
	sk, err := newSigningKey(key, p.now())
	if err != nil {
		return SigningKey{}, err
	}
	p.next = &sk
	return sk, nil
}

// Rotate makes the staged key current, generating one if nothing is staged.
// The previous key keeps being published for the overlap window.
func (p *Provider) Rotate() (SigningKey, error) {
	if _, err := p.Stage(); err != nil {
		return SigningKey{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	prev := p.current
	prev.RetiredAt = now
	p.retired = append(p.retired, prev)
	p.current = *p.next
	p.next = nil
	return p.current, nil
}

// Prune forgets retired keys whose overlap window has elapsed and returns
// how many were dropped.
func (p *Provider) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	kept := p.retired[:0]
	for _, k := range p.retired {
		if now.Sub(k.RetiredAt) < p.overlap {
			kept = append(kept, k)
		}
	}
	dropped := len(p.retired) - len(kept)
	p.retired = kept
	return dropped
}

// JWKS returns the public halves of the current key, the staged key and
// every retired key still inside its overlap window, in that order.
func (p *Provider) JWKS() jose.JSONWebKeySet {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{publicJWK(p.current)}}
	if p.next != nil {
		set.Keys = append(set.Keys, publicJWK(*p.next))
	}
	for i := len(p.retired) - 1; i >= 0; i-- {
		k := p.retired[i]
		if now.Sub(k.RetiredAt) < p.overlap {
			set.Keys = append(set.Keys, publicJWK(k))
		}
	}
	return set
}

func publicJWK(k SigningKey) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       &k.Key.PublicKey,
		KeyID:     k.ID,
		Algorithm: Algorithm,
		Use:       "sig",
	}
}

// Run rotates the signing key every interval until ctx is done. The key a
// rotation switches to is staged one interval ahead, so it is published for
// a whole interval before it signs. onChange receives the published set
// after staging and after each rotation. A zero interval disables rotation.
func (p *Provider) Run(ctx context.Context, interval time.Duration, onChange func(ctx context.Context, set jose.JSONWebKeySet)) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	notify := func() {
		if onChange != nil {
			onChange(ctx, p.JWKS())
		}
	}

	if _, err := p.Stage(); err != nil {
		return err
	}
	notify()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Rotate(); err != nil {
				return err
			}
			metrics.SigningKeyRotationsTotal.Inc()
			p.Prune()
			if _, err := p.Stage(); err != nil {
				return err
			}
			notify()
		}
	}
}

// ParsePrivateKeyPEM decodes a PKCS#1 or PKCS#8 RSA private key and rejects
// keys smaller than MinKeyBits.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, err
	}
	if key.N.BitLen() < MinKeyBits {
		return nil, errors.New("rsa key too small")
	}
	return key, nil
}
