package nsnettest

import (
	"context"
	"crypto/ed25519"
	crand "crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/gordian-engine/netsync/nsnet"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

// SelfSignedCert returns a short-lived ed25519 certificate for "localhost"
// and a pool trusting it.
func SelfSignedCert(t testing.TB) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	serial, err := crand.Int(crand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serial,

		Subject:   pkix.Name{CommonName: "localhost"},
		NotBefore: time.Now().Add(-15 * time.Second),
		NotAfter:  time.Now().Add(time.Hour),

		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		IsCA:                  true,

		DNSNames: []string{"localhost"},
	}

	der, err := x509.CreateCertificate(nil, template, template, pub, priv)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        cert,
	}, pool
}

// NewQUICPair starts a QUIC listener on loopback, dials it,
// and returns the dialing and accepted sides of the connection.
// Both have datagrams enabled.
//
// The UDP sockets and connections are closed through [testing.T.Cleanup].
func NewQUICPair(t *testing.T, ctx context.Context) (client, server *quic.Conn) {
	t.Helper()

	cert, pool := SelfSignedCert(t)

	serverUDP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	clientUDP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	serverTr := &quic.Transport{Conn: serverUDP}
	clientTr := &quic.Transport{Conn: clientUDP}
	t.Cleanup(func() {
		_ = clientTr.Close()
		_ = serverTr.Close()
		_ = clientUDP.Close()
		_ = serverUDP.Close()
	})

	ln, err := serverTr.Listen(&tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{nsnet.NextProto},
	}, nsnet.DefaultQUICConfig())
	require.NoError(t, err)

	acceptedCh := make(chan *quic.Conn, 1)
	go func() {
		c, err := ln.Accept(ctx)
		if err != nil {
			t.Error(err)
			acceptedCh <- nil
			return
		}
		acceptedCh <- c
	}()

	client, err = clientTr.Dial(ctx, serverUDP.LocalAddr(), &tls.Config{
		RootCAs:    pool,
		ServerName: "localhost",
		NextProtos: []string{nsnet.NextProto},
	}, nsnet.DefaultQUICConfig())
	require.NoError(t, err)

	select {
	case server = <-acceptedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out accepting QUIC connection")
	}
	require.NotNil(t, server)

	return client, server
}
