package etsi014

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// Client is the HTTP-backed application.QkdClient adapter.
type Client struct {
	url         string
	remoteSaeID string
	http        *http.Client
}

// NewClient builds a Client from Config, wiring system roots, an optional
// pinned CA, optional mutual TLS, and the optional insecure-SAN-mismatch
// verifier.
func NewClient(cfg Config) (*Client, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("etsi014: failed to build TLS configuration: %w", err)
	}

	return &Client{
		url:         cfg.URL,
		remoteSaeID: cfg.RemoteSaeID,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	roots, err := systemOrPinnedRoots(cfg.TLSCACert)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{RootCAs: roots}

	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate/key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.DangerAllowInsecureNoServerNameCertificates {
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = verifyConnectionIgnoringServerName(roots)
	}

	return tlsConfig, nil
}

func systemOrPinnedRoots(caCertPath string) (*x509.CertPool, error) {
	if caCertPath == "" {
		return nil, nil
	}

	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS CA certificate from file %q: %w", caCertPath, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse TLS CA certificate from file %q", caCertPath)
	}
	return pool, nil
}

// verifyConnectionIgnoringServerName re-runs chain and expiry verification
// without the DNSName check, so the only failure it can tolerate is a
// hostname/SAN mismatch. Any other chain error still fails the handshake.
func verifyConnectionIgnoringServerName(roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return fmt.Errorf("etsi014: server presented no certificates")
		}

		intermediates := x509.NewCertPool()
		for _, cert := range cs.PeerCertificates[1:] {
			intermediates.AddCert(cert)
		}

		_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})
		return err
	}
}

// FetchAnyKey requests a fresh random key from the device (server role).
func (c *Client) FetchAnyKey(ctx context.Context) (application.Etsi014Key, error) {
	uri := fmt.Sprintf("%s/api/v1/keys/%s/enc_keys?number=1&key_length=256", c.url, c.remoteSaeID)
	key, err := c.fetchKeyInternal(ctx, uri)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("etsi014: fetching unspecific key: %w", err)
	}
	return key, nil
}

// FetchSpecificKey requests the half matching a previously announced key
// id (client role).
func (c *Client) FetchSpecificKey(ctx context.Context, id uuid.UUID) (application.Etsi014Key, error) {
	uri := fmt.Sprintf("%s/api/v1/keys/%s/dec_keys?key_ID=%s", c.url, c.remoteSaeID, id)
	key, err := c.fetchKeyInternal(ctx, uri)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("etsi014: fetching specific key %s: %w", id, err)
	}
	return key, nil
}

type responseKey struct {
	ID  uuid.UUID `json:"key_ID"`
	Key string    `json:"key"`
}

type responseKeys struct {
	Keys []responseKey `json:"keys"`
}

func (c *Client) fetchKeyInternal(ctx context.Context, uri string) (application.Etsi014Key, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return application.Etsi014Key{}, fmt.Errorf("URL %s returned status code %d: %s", uri, resp.StatusCode, body)
	}

	var parsed responseKeys
	if err := json.Unmarshal(body, &parsed); err != nil {
		return application.Etsi014Key{}, fmt.Errorf("decoding response JSON: %w", err)
	}

	if len(parsed.Keys) != 1 {
		return application.Etsi014Key{}, fmt.Errorf("expected exactly one key, got %d keys", len(parsed.Keys))
	}

	return toEtsi014Key(parsed.Keys[0])
}

func toEtsi014Key(rk responseKey) (application.Etsi014Key, error) {
	raw, err := base64.StdEncoding.DecodeString(rk.Key)
	if err != nil {
		return application.Etsi014Key{}, fmt.Errorf("decoding base64 key material: %w", err)
	}
	if len(raw) != keycrypto.KeyLength {
		return application.Etsi014Key{}, fmt.Errorf("decoded key has length %d, want %d", len(raw), keycrypto.KeyLength)
	}

	var key keycrypto.Key
	copy(key[:], raw)

	return application.Etsi014Key{ID: rk.ID, Key: key}, nil
}
