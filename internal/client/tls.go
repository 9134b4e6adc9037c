package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"eli-dashboard/internal/util"
)

// backendTLSConfig reads <prefix>_CA_FILE, <prefix>_CERT_FILE and
// <prefix>_KEY_FILE. The client pair is optional.
func backendTLSConfig(prefix, serverName string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: serverName}

	if caFile := util.GetEnv(prefix+"_CA_FILE", ""); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read %s CA file: %w", prefix, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s CA file", prefix)
		}
		cfg.RootCAs = pool
	}

	certFile := util.GetEnv(prefix+"_CERT_FILE", "")
	keyFile := util.GetEnv(prefix+"_KEY_FILE", "")
	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("load %s client certificate: %w", prefix, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
