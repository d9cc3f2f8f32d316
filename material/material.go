// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2024 Hopsworks AB
//

// Package material locates and loads the per-user TLS material the
// platform provisions for every project: a JKS keystore/truststore
// pair for JVM clients, a derived PEM set for everyone else, and the
// material password protecting them.
package material

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"

	"github.com/logicalclocks/hops-go/config"
	"github.com/logicalclocks/hops-go/hopserr"
)

// Material is a handle to the crypto material directory. On executors
// the directory is the working directory; external clients point
// MATERIAL_DIRECTORY at a download of their project certificates.
type Material struct {
	Dir      string
	password string
}

// Load opens the material directory and reads the material password.
func Load(dir string) (*Material, error) {
	raw, err := os.ReadFile(filepath.Join(dir, config.MaterialPasswdFile))
	if err != nil {
		connErr := hopserr.NewConnectionError(dir, err)
		connErr.SetMessage("could not read the material password")
		return nil, connErr
	}
	return &Material{
		Dir:      dir,
		password: strings.TrimSpace(string(raw)),
	}, nil
}

// Password protects the keystore, the truststore and the private key.
func (m *Material) Password() string {
	return m.password
}

// KeyStorePath is the JKS keystore holding the project-user
// certificate, consumed as-is by JVM Kafka clients.
func (m *Material) KeyStorePath() string {
	return filepath.Join(m.Dir, config.KeystoreFile)
}

func (m *Material) TrustStorePath() string {
	return filepath.Join(m.Dir, config.TruststoreFile)
}

func (m *Material) ClientCertPath() string {
	return filepath.Join(m.Dir, config.ClientCertPEM)
}

func (m *Material) ClientKeyPath() string {
	return filepath.Join(m.Dir, config.ClientKeyPEM)
}

func (m *Material) ClientCAPath() string {
	return filepath.Join(m.Dir, config.ClientCAPEM)
}

// TLSConfig builds the mutual-TLS configuration used to talk to the
// REST API and any platform service that requires the project-user
// certificate.
func (m *Material) TLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(m.ClientCertPath(), m.ClientKeyPath())
	if err != nil {
		connErr := hopserr.NewConnectionError(m.Dir, err)
		connErr.SetMessage("could not load the client certificate pair")
		return nil, connErr
	}
	caBytes, err := os.ReadFile(m.ClientCAPath())
	if err != nil {
		connErr := hopserr.NewConnectionError(m.Dir, err)
		connErr.SetMessage("could not read the CA bundle")
		return nil, connErr
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		connErr := hopserr.NewConnectionError(m.Dir, nil)
		connErr.SetMessage("the CA bundle contains no usable certificates")
		return nil, connErr
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
	}, nil
}

// WriteKafkaMaterial copies the PEM set into dir so librdkafka-style
// consumers can point ssl.certificate.location and friends at it.
// Existing files are left alone.
func (m *Material) WriteKafkaMaterial(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		connErr := hopserr.NewConnectionError(dir, err)
		connErr.SetMessage("could not create the kafka material directory")
		return connErr
	}
	for _, name := range []string{config.ClientCertPEM, config.ClientKeyPEM, config.ClientCAPEM} {
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.Dir, name))
		if err != nil {
			connErr := hopserr.NewConnectionError(m.Dir, err)
			connErr.SetMessage("could not read " + name)
			return connErr
		}
		if err := os.WriteFile(target, raw, 0o600); err != nil {
			connErr := hopserr.NewConnectionError(dir, err)
			connErr.SetMessage("could not write " + name)
			return connErr
		}
	}
	return nil
}

// Exists reports whether dir looks like a provisioned material
// directory, without failing on half-provisioned ones.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, config.MaterialPasswdFile))
	return err == nil
}
