package e2e

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"path/filepath"
	"testing"

	"github.com/revmura/revmura-suite/adapters/sqlite"
	tlsadapter "github.com/revmura/revmura-suite/adapters/tls"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme/autocert"
)

// TestE2E_ACMEPersistence_AccountKey verifies the ACME account key written
// through the certificate cache survives a database reopen, so a restart
// does not register a new account.
func TestE2E_ACMEPersistence_AccountKey(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	accountKeyName := "+acme_account+https://acme-v02.api.letsencrypt.org/directory"
	ctx := context.Background()

	var stored []byte

	t.Run("Phase1_StoreAccountKey", func(t *testing.T) {
		cache, cleanup := openCache(t, dbPath)
		defer cleanup()

		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			t.Fatalf("marshal key: %v", err)
		}
		stored = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

		if err := cache.Put(ctx, accountKeyName, stored); err != nil {
			t.Fatalf("store account key: %v", err)
		}
	})

	t.Run("Phase2_KeySurvivesRestart", func(t *testing.T) {
		cache, cleanup := openCache(t, dbPath)
		defer cleanup()

		got, err := cache.Get(ctx, accountKeyName)
		if err != nil {
			t.Fatalf("get account key: %v", err)
		}
		if string(got) != string(stored) {
			t.Error("account key changed across restart")
		}
		block, _ := pem.Decode(got)
		if block == nil {
			t.Fatal("stored account key is not PEM")
		}
		if _, err := x509.ParseECPrivateKey(block.Bytes); err != nil {
			t.Errorf("parse account key: %v", err)
		}
	})

	t.Run("Phase3_DeleteIsPersisted", func(t *testing.T) {
		cache, cleanup := openCache(t, dbPath)
		if err := cache.Delete(ctx, accountKeyName); err != nil {
			t.Fatalf("delete: %v", err)
		}
		cleanup()

		cache, cleanup = openCache(t, dbPath)
		defer cleanup()
		if _, err := cache.Get(ctx, accountKeyName); err != autocert.ErrCacheMiss {
			t.Errorf("get after delete = %v, want ErrCacheMiss", err)
		}
	})
}

func openCache(t *testing.T, dbPath string) (*tlsadapter.StoreCache, func()) {
	t.Helper()
	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	cache := tlsadapter.NewStoreCache(sqlite.NewConfigStore(db), zerolog.Nop())
	return cache, func() { db.Close() }
}
