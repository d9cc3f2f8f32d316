// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

package material

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
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

	"github.com/logicalclocks/hops-go/config"
)

// writeTestMaterial provisions a material directory with a self-signed
// certificate the way the platform's certificate localizer would.
func writeTestMaterial(t *testing.T, dir string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "demo__meb10000"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ClientCertPEM), certPEM, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ClientKeyPEM), keyPEM, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ClientCAPEM), certPEM, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.MaterialPasswdFile), []byte("s3cret\n"), 0600))
}

func TestLoadReadsPassword(t *testing.T) {
	dir := t.TempDir()
	writeTestMaterial(t, dir)

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", m.Password())
	assert.Equal(t, filepath.Join(dir, "k_certificate"), m.KeyStorePath())
	assert.Equal(t, filepath.Join(dir, "t_certificate"), m.TrustStorePath())
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestTLSConfig(t *testing.T) {
	dir := t.TempDir()
	writeTestMaterial(t, dir)

	m, err := Load(dir)
	require.NoError(t, err)
	cfg, err := m.TLSConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
}

func TestWriteKafkaMaterial(t *testing.T) {
	dir := t.TempDir()
	writeTestMaterial(t, dir)
	m, err := Load(dir)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "kafka")
	require.NoError(t, m.WriteKafkaMaterial(target))
	for _, name := range []string{config.ClientCertPEM, config.ClientKeyPEM, config.ClientCAPEM} {
		_, err := os.Stat(filepath.Join(target, name))
		assert.NoError(t, err, name)
	}

	// a second run leaves the files in place
	require.NoError(t, m.WriteKafkaMaterial(target))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))
	writeTestMaterial(t, dir)
	assert.True(t, Exists(dir))
}
