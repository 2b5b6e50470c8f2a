package tls

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

const (
	// LetsEncrypt production directory
	letsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"
	// LetsEncrypt staging directory (for testing)
	letsEncryptStaging = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

// ErrHostNotAllowed is returned by the host policy for unlisted domains.
var ErrHostNotAllowed = errors.New("host not allowed")

// Options selects how the server obtains its certificate. Static files win
// over ACME when both are set.
type Options struct {
	CertFile string
	KeyFile  string

	// ACME (Let's Encrypt) settings.
	Email   string
	Domains []string // exact names or "*.example.com"
	Staging bool
}

// Provider supplies the server's TLS configuration.
type Provider struct {
	config  *cryptotls.Config
	manager *autocert.Manager
	domains []string
}

// NewProvider builds a provider from opts. cache is only used for ACME and
// may be nil otherwise.
func NewProvider(opts Options, cache autocert.Cache, logger zerolog.Logger) (*Provider, error) {
	if opts.CertFile != "" || opts.KeyFile != "" {
		cert, err := cryptotls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load certificate: %w", err)
		}
		logger.Info().Str("cert_file", opts.CertFile).Msg("tls enabled with static certificate")
		return &Provider{config: &cryptotls.Config{
			MinVersion:   cryptotls.VersionTLS12,
			Certificates: []cryptotls.Certificate{cert},
		}}, nil
	}

	if len(opts.Domains) == 0 {
		return nil, errors.New("acme requires at least one domain")
	}
	if cache == nil {
		return nil, errors.New("acme requires a certificate cache")
	}

	directoryURL := letsEncryptProduction
	if opts.Staging {
		directoryURL = letsEncryptStaging
	}

	p := &Provider{domains: normalizeDomains(opts.Domains)}
	p.manager = &autocert.Manager{
		Cache:      cache,
		Prompt:     autocert.AcceptTOS,
		Email:      opts.Email,
		HostPolicy: p.hostPolicy,
		Client:     &acme.Client{DirectoryURL: directoryURL},
	}
	p.config = p.manager.TLSConfig()
	p.config.MinVersion = cryptotls.VersionTLS12

	logger.Info().
		Strs("domains", p.domains).
		Bool("staging", opts.Staging).
		Str("directory", directoryURL).
		Msg("tls enabled with acme")
	return p, nil
}

// TLSConfig returns the server TLS configuration.
func (p *Provider) TLSConfig() *cryptotls.Config {
	return p.config
}

// ChallengeHandler serves ACME HTTP-01 challenges and passes everything else
// to fallback. With static certificates it returns fallback unchanged.
func (p *Provider) ChallengeHandler(fallback http.Handler) http.Handler {
	if p.manager == nil {
		return fallback
	}
	return p.manager.HTTPHandler(fallback)
}

// hostPolicy accepts listed domains. "*.example.com" matches any subdomain
// depth but not example.com itself.
func (p *Provider) hostPolicy(_ context.Context, host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, d := range p.domains {
		if d == host {
			return nil
		}
		if suffix, ok := strings.CutPrefix(d, "*"); ok && strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
