// Package keyset keeps a guard's copy of the authority's verification keys.
//
// Keys are fetched from the authority's JWKS document in the background and
// looked up locally per request. Keys from the last successfully fetched
// document are trusted until a later document drops them; a failed fetch
// never shrinks the set. A dropped key is still honoured until the retention
// window elapses, so tokens signed just before a rotation keep validating
// while caches converge.
package keyset

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownKey = errors.New("unknown signing key")

const (
	maxKeys          = 64
	maxDocumentBytes = 1 << 20
	signingAlgorithm = "RS256"

	// DefaultKickInterval throttles refreshes triggered by unknown key ids.
	DefaultKickInterval = 10 * time.Second
)

type KeySet struct {
	url    string
	client *http.Client

	mu      sync.RWMutex
	current map[string]*rsa.PublicKey
	retired *expirable.LRU[string, *rsa.PublicKey]

	group        singleflight.Group
	kick         chan struct{}
	kickInterval time.Duration
	logger       logging.Logger
}

// New returns an empty key set reading from jwksURL. Keys dropped by a
// successful refresh are kept for retention.
func New(jwksURL string, retention time.Duration, client *http.Client, l logging.Logger) *KeySet {
	if client == nil {
		client = http.DefaultClient
	}
	return &KeySet{
		url:          jwksURL,
		client:       client,
		current:      map[string]*rsa.PublicKey{},
		retired:      expirable.NewLRU[string, *rsa.PublicKey](maxKeys, nil, retention),
		kick:         make(chan struct{}, 1),
		kickInterval: DefaultKickInterval,
		logger:       l.With("module", "keyset"),
	}
}

// Discover resolves the JWKS location from the issuer's OpenID discovery
// document. The document must name the same issuer.
func Discover(ctx context.Context, client *http.Client, issuer string) (string, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("issuer discovery: %w", err)
	}

	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := p.Claims(&meta); err != nil {
		return "", fmt.Errorf("issuer discovery: %w", err)
	}
	if meta.JWKSURI == "" {
		return "", errors.New("issuer discovery: no jwks_uri")
	}
	return meta.JWKSURI, nil
}

// Key returns the verification key for kid from the local cache. A miss
// never blocks on the network; it schedules a background refresh instead.
func (k *KeySet) Key(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	pub, ok := k.current[kid]
	k.mu.RUnlock()
	if ok {
		return pub, nil
	}
	if pub, ok := k.retired.Get(kid); ok {
		return pub, nil
	}
	select {
	case k.kick <- struct{}{}:
	default:
	}
	return nil, ErrUnknownKey
}

// Len is the number of keys currently trusted.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.current) + k.retired.Len()
}

// Refresh fetches the key set now. Concurrent calls share one fetch.
func (k *KeySet) Refresh(ctx context.Context) error {
	_, err, _ := k.group.Do("refresh", func() (any, error) {
		return nil, k.fetch(ctx)
	})

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.KeySetRefreshesTotal.WithLabelValues(result).Inc()
	return err
}

func (k *KeySet) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&set); err != nil {
		return fmt.Errorf("jwks decode: %w", err)
	}

	next := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		if jwk.Algorithm != "" && jwk.Algorithm != signingAlgorithm {
			continue
		}
		pub, ok := jwk.Key.(*rsa.PublicKey)
		if !ok || jwk.KeyID == "" {
			continue
		}
		if len(next) < maxKeys {
			next[jwk.KeyID] = pub
		}
	}
	if len(next) == 0 {
		return errors.New("jwks fetch: no usable keys")
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for kid, pub := range k.current {
		if _, ok := next[kid]; !ok {
			k.retired.Add(kid, pub)
		}
	}
	for kid := range next {
		k.retired.Remove(kid)
	}
	k.current = next
	return nil
}

// Run refreshes every interval and whenever Key misses, at most once per
// kick interval for the latter, until ctx is done.
func (k *KeySet) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastKick time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-k.kick:
			if time.Since(lastKick) < k.kickInterval {
				continue
			}
			lastKick = time.Now()
		}

		if err := k.Refresh(ctx); err != nil {
			k.logger.Warn(ctx, "Key set refresh failed", "error", err)
			continue
		}
		k.logger.Debug(ctx, "Key set refreshed", "keys", k.Len())
	}
}
