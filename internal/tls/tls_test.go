package tls

import (
	"crypto/tls"
	"crypto/x509"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevCertCoversHosts(t *testing.T) {
	dir := t.TempDir()
	gen := NewDevCertGenerator(dir)

	cert, err := gen.GenerateCert([]string{"dash.local", "127.0.0.1", ""})
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"dash.local"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", leaf.IPAddresses[0].String())
	assert.True(t, leaf.NotAfter.After(time.Now().Add(80*24*time.Hour)))

	assert.FileExists(t, filepath.Join(dir, "dev-cert.pem"))
	assert.FileExists(t, filepath.Join(dir, "dev-key.pem"))
}

func TestDevCertReusesFileOnDisk(t *testing.T) {
	dir := t.TempDir()

	first, err := NewDevCertGenerator(dir).GenerateCert([]string{"localhost"})
	require.NoError(t, err)
	second, err := NewDevCertGenerator(dir).GenerateCert([]string{"localhost"})
	require.NoError(t, err)

	assert.Equal(t, first.Certificate[0], second.Certificate[0])
}

func TestManagerFallsBackToSelfSigned(t *testing.T) {
	m := NewTLSManager(&TLSConfig{EnableTLS: true, Domain: "localhost", AutoCertDir: t.TempDir(), Environment: "development"})
	assert.Nil(t, m.GetAutocertManager())

	cert, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
	assert.Equal(t, uint16(tls.VersionTLS12), m.GetTLSConfig().MinVersion)
}

func TestManagerProductionNeedsRealCert(t *testing.T) {
	m := NewTLSManager(&TLSConfig{EnableTLS: true, Domain: "dash.example", AutoCertDir: t.TempDir(), Environment: "production"})

	_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "dash.example"})
	assert.Error(t, err)
}
