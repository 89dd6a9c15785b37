package sshx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cwt/hydra/internal/errors"
	"github.com/cwt/hydra/internal/hostlist"
)

// silentListener accepts TCP connections but never speaks SSH, so the
// handshake can only end by deadline.
func silentListener(t *testing.T) *net.TCPAddr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().(*net.TCPAddr)
}

// refusedAddr returns an address nothing is listening on.
func refusedAddr(t *testing.T) *net.TCPAddr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())
	return addr
}

func TestConnectFailsFastOnSilentServer(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	addr := silentListener(t)

	e := &Establisher{Timeout: 200 * time.Millisecond, MaxRetries: 0}
	host := hostlist.Host{Name: "silent", Address: "127.0.0.1", Port: addr.Port, Username: "user"}

	start := time.Now()
	_, err := e.Connect(context.Background(), host, Credential{Password: "x"})
	elapsed := time.Since(start)

	require.Error(t, err)
	var connErr *apperrors.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 1, connErr.Attempts)
	assert.Less(t, elapsed, 3*time.Second, "per-attempt timeout must bound the handshake")
}

func TestConnectExhaustsAttemptBudget(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	addr := refusedAddr(t)

	e := &Establisher{Timeout: 200 * time.Millisecond, MaxRetries: 1}
	host := hostlist.Host{Name: "down", Address: "127.0.0.1", Port: addr.Port, Username: "user"}

	_, err := e.Connect(context.Background(), host, Credential{Password: "x"})
	require.Error(t, err)

	var connErr *apperrors.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "down", connErr.Host)
	assert.Equal(t, addr.String(), connErr.Addr)
	assert.Equal(t, 2, connErr.Attempts)
	assert.Equal(t, 200*time.Millisecond, connErr.Timeout)
	assert.NotNil(t, connErr.Unwrap())
	assert.Contains(t, err.Error(), "2 attempts")
}

func TestConnectStopsOnContextCancel(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	addr := refusedAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &Establisher{Timeout: 200 * time.Millisecond, MaxRetries: 5}
	host := hostlist.Host{Name: "down", Address: "127.0.0.1", Port: addr.Port, Username: "user"}

	start := time.Now()
	_, err := e.Connect(ctx, host, Credential{Password: "x"})

	require.Error(t, err)
	var connErr *apperrors.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Less(t, time.Since(start), 3*time.Second, "cancellation must cut the backoff short")
}

func TestConnectNoCredential(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	e := &Establisher{Timeout: 200 * time.Millisecond}
	host := hostlist.Host{Name: "bare", Address: "127.0.0.1", Port: 22, Username: "user"}

	_, err := e.Connect(context.Background(), host, Credential{})
	require.Error(t, err)

	var noCred *apperrors.NoCredentialError
	assert.ErrorAs(t, err, &noCred)
}
