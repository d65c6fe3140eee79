// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// GenerateSelfSigned produces a throwaway certificate/key pair valid for
// host, for use with the TLS-stream transport in examples and tests.
// Production deployments are expected to load a real certificate via
// HostConfig.CertPath/KeyPath instead; generating and distributing real
// certificates is explicitly out of this module's scope.
func GenerateSelfSigned(host string) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "generate self-signed key", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "generate serial number", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "create self-signed certificate", err)
	}

	var certBuf bytes.Buffer
	if err := pem.Encode(&certBuf, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "encode certificate pem", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "marshal private key", err)
	}
	var keyBuf bytes.Buffer
	if err := pem.Encode(&keyBuf, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}); err != nil {
		return nil, nil, merrors.Wrap(merrors.KindOpeningStore, "encode key pem", err)
	}

	return certBuf.Bytes(), keyBuf.Bytes(), nil
}

// UseSelfSignedCert generates and installs a throwaway certificate for the
// TLS-stream transport, bypassing HostConfig.CertPath/KeyPath. Intended for
// local development and tests.
func (h *Host) UseSelfSignedCert(host string) error {
	cert, key, err := GenerateSelfSigned(host)
	if err != nil {
		return err
	}
	h.tlsCert = string(cert)
	h.tlsKey = string(key)
	return nil
}
