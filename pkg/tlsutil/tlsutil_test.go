package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semlink/errors"
)

// generateTestCert creates a self-signed certificate for testing
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	return certPEM, keyPEM
}

// setupTestFiles writes a certificate, its key and the certificate again as CA.
func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	dir := t.TempDir()
	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	caFile = filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	return certFile, keyFile, caFile
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not pem"), 0o644))

	tests := []struct {
		name    string
		cfg     ClientConfig
		wantNil bool
		wantErr func(error) bool
		check   func(t *testing.T, c *tls.Config)
	}{
		{
			name:    "nothing set",
			wantNil: true,
		},
		{
			name: "additional CA",
			cfg:  ClientConfig{CAFiles: []string{caFile}},
			check: func(t *testing.T, c *tls.Config) {
				assert.NotNil(t, c.RootCAs)
				assert.Equal(t, uint16(tls.VersionTLS12), c.MinVersion)
				assert.Empty(t, c.Certificates)
			},
		},
		{
			name: "client certificate and TLS 1.3",
			cfg:  ClientConfig{CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"},
			check: func(t *testing.T, c *tls.Config) {
				assert.Len(t, c.Certificates, 1)
				assert.Equal(t, uint16(tls.VersionTLS13), c.MinVersion)
			},
		},
		{
			name: "insecure skip verify",
			cfg:  ClientConfig{InsecureSkipVerify: true},
			check: func(t *testing.T, c *tls.Config) {
				assert.True(t, c.InsecureSkipVerify)
			},
		},
		{
			name:    "missing CA file",
			cfg:     ClientConfig{CAFiles: []string{"/nonexistent/ca.pem"}},
			wantErr: errors.IsFatal,
		},
		{
			name:    "invalid CA data",
			cfg:     ClientConfig{CAFiles: []string{garbage}},
			wantErr: errors.IsFatal,
		},
		{
			name:    "certificate without key",
			cfg:     ClientConfig{CertFile: certFile},
			wantErr: errors.IsInvalid,
		},
		{
			name:    "unreadable key pair",
			cfg:     ClientConfig{CertFile: certFile, KeyFile: garbage},
			wantErr: errors.IsFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadClientTLSConfig(tt.cfg)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected classification: %v", err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			tt.check(t, c)
		})
	}
}

func TestFromOptions(t *testing.T) {
	cfg := FromOptions(map[string]any{
		"endpoint":               "https://query.example.org/sparql",
		OptionCAFiles:            []any{"a.pem", "b.pem"},
		OptionCertFile:           "client.pem",
		OptionKeyFile:            "client.key",
		OptionMinVersion:         "1.3",
		OptionInsecureSkipVerify: true,
	})
	assert.Equal(t, ClientConfig{
		CAFiles:            []string{"a.pem", "b.pem"},
		CertFile:           "client.pem",
		KeyFile:            "client.key",
		MinVersion:         "1.3",
		InsecureSkipVerify: true,
	}, cfg)
	assert.True(t, cfg.Enabled())

	assert.False(t, FromOptions(map[string]any{"endpoint": "x"}).Enabled())
	assert.False(t, FromOptions(nil).Enabled())
}

func TestParseTLSVersion(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS13), parseTLSVersion("1.3"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("1.2"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion(""))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("1.0"))
}
