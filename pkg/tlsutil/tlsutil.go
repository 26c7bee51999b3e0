// Package tlsutil builds client TLS configurations for backend connections.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/semlink/config"
	"github.com/c360/semlink/errors"
)

// Backend option keys read by FromOptions
const (
	OptionCAFiles            = "tls_ca_files"
	OptionCertFile           = "tls_cert_file"
	OptionKeyFile            = "tls_key_file"
	OptionMinVersion         = "tls_min_version"
	OptionInsecureSkipVerify = "tls_insecure_skip_verify"
)

// ClientConfig describes the TLS side of an outbound connection. CertFile
// and KeyFile together enable a client certificate for mTLS.
type ClientConfig struct {
	CAFiles            []string
	CertFile           string
	KeyFile            string
	MinVersion         string // "1.2" or "1.3"
	InsecureSkipVerify bool
}

// Enabled reports whether any TLS setting is present.
func (c ClientConfig) Enabled() bool {
	return len(c.CAFiles) > 0 || c.CertFile != "" || c.KeyFile != "" ||
		c.MinVersion != "" || c.InsecureSkipVerify
}

// FromOptions reads the tls_* keys of a backend's options.
func FromOptions(options map[string]any) ClientConfig {
	return ClientConfig{
		CAFiles:            config.GetStringSlice(options, OptionCAFiles, nil),
		CertFile:           config.GetString(options, OptionCertFile, ""),
		KeyFile:            config.GetString(options, OptionKeyFile, ""),
		MinVersion:         config.GetString(options, OptionMinVersion, ""),
		InsecureSkipVerify: config.GetBool(options, OptionInsecureSkipVerify, false),
	}
}

// LoadClientTLSConfig creates a tls.Config. It returns nil when cfg sets
// nothing. The system CA bundle is always trusted; CAFiles are added to it.
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: invalid PEM data", errors.ErrInvalidConfig),
				"tlsutil", "LoadClientTLSConfig",
				fmt.Sprintf("parse CA certificate from %s", caFile))
		}
	}
	tlsConfig.RootCAs = rootCAs

	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	case cfg.CertFile != "" || cfg.KeyFile != "":
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: client certificate needs both %s and %s", errors.ErrInvalidConfig, OptionCertFile, OptionKeyFile),
			"tlsutil", "LoadClientTLSConfig", "client certificate")
	}

	// Set only on explicit configuration
	tlsConfig.InsecureSkipVerify = cfg.InsecureSkipVerify

	return tlsConfig, nil
}

// parseTLSVersion returns tls.VersionTLS12 for empty or unknown versions.
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
