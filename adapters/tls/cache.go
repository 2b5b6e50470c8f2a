// Package tls provides TLS certificate management for the HTTP server.
package tls

import (
	"context"
	"strings"
	"sync"

	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme/autocert"
)

// StoreCache implements autocert.Cache on top of the settings store, so
// certificates and the ACME account key survive restarts without a cache
// directory. Entries are kept in memory after the first read.
type StoreCache struct {
	store  ports.SettingsStore
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewStoreCache creates a settings-backed certificate cache.
func NewStoreCache(store ports.SettingsStore, logger zerolog.Logger) *StoreCache {
	return &StoreCache{
		store:  store,
		logger: logger,
		cache:  make(map[string][]byte),
	}
}

// Get retrieves cached data. Implements autocert.Cache.
func (c *StoreCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	// []byte round-trips through JSON as base64.
	var stored []byte
	found, err := c.store.Load(ctx, settingKey(key), &stored)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("certificate cache read failed")
		return nil, err
	}
	if !found || len(stored) == 0 {
		return nil, autocert.ErrCacheMiss
	}

	c.mu.Lock()
	c.cache[key] = stored
	c.mu.Unlock()
	return stored, nil
}

// Put stores data. Implements autocert.Cache.
func (c *StoreCache) Put(ctx context.Context, key string, data []byte) error {
	if err := c.store.Save(ctx, settingKey(key), data); err != nil {
		return err
	}

	c.mu.Lock()
	c.cache[key] = append([]byte(nil), data...)
	c.mu.Unlock()

	c.logger.Info().Str("key", key).Int("bytes", len(data)).Msg("certificate cached")
	return nil
}

// Delete removes data. Implements autocert.Cache.
func (c *StoreCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
	return c.store.Delete(ctx, settingKey(key))
}

// settingKey maps an autocert key (a domain, "domain+rsa" or
// "acme_account+key") to a settings key.
func settingKey(key string) string {
	return settings.KeyTLSPrefix + strings.ToLower(key)
}

// Ensure interface compliance.
var _ autocert.Cache = (*StoreCache)(nil)
