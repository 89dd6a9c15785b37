package sshx

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	apperrors "github.com/cwt/hydra/internal/errors"
	"github.com/cwt/hydra/internal/hostlist"
	"github.com/cwt/hydra/internal/logging"
)

// Narrowed transport preference tried first on every connection. AEAD
// ciphers and ETM MACs are the cheap ones on both ends; hosts that cannot
// negotiate them get the full default set after one failed attempt.
var (
	fastCiphers = []string{
		"chacha20-poly1305@openssh.com",
		"aes128-gcm@openssh.com",
		"aes256-gcm@openssh.com",
		"aes128-ctr",
	}
	fastMACs = []string{
		"hmac-sha2-256-etm@openssh.com",
		"hmac-sha2-256",
	}
)

// retryBackoff is the fixed wait between connection attempts.
const retryBackoff = time.Second

// Establisher opens SSH connections with bounded retries and a one-way
// algorithm degradation on negotiation failure. It holds no per-host state;
// each Connect call is an independent state machine.
type Establisher struct {
	Timeout    time.Duration // per-attempt timeout
	MaxRetries int           // attempts = MaxRetries + 1
	Logger     *logging.Logger
}

// Connect establishes an SSH connection to the host using the resolved
// credential. It returns an *ssh.Client owned by the caller, or a
// *ConnectError carrying the last underlying failure.
func (e *Establisher) Connect(ctx context.Context, host hostlist.Host, cred Credential) (*ssh.Client, error) {
	auth, err := e.authMethods(host, cred)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(host.Address, strconv.Itoa(host.Port))
	attempts := e.MaxRetries + 1
	fast := true

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		client, err := e.dial(ctx, addr, host.Username, auth, fast)
		if err == nil {
			if e.Logger != nil {
				e.Logger.LogConnection(host.Name, addr, attempt, time.Since(start))
			}
			return client, nil
		}
		lastErr = err

		if e.Logger != nil {
			e.Logger.LogConnectionError(host.Name, addr, attempt, err)
		}

		if fast && apperrors.IsAlgorithmMismatch(err) {
			// One-way degradation: all remaining attempts use the remote's
			// default algorithm set. No backoff; nothing transient happened.
			fast = false
			if e.Logger != nil {
				e.Logger.LogAlgorithmFallback(host.Name, err)
			}
			continue
		}

		if attempt < attempts {
			if e.Logger != nil {
				e.Logger.LogRetry(host.Name, attempt+1, retryBackoff)
			}
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, &apperrors.ConnectError{
					Host: host.Name, Addr: addr, Attempts: attempt,
					Timeout: e.Timeout, Err: ctx.Err(),
				}
			}
		}
	}

	return nil, &apperrors.ConnectError{
		Host:     host.Name,
		Addr:     addr,
		Attempts: attempts,
		Timeout:  e.Timeout,
		Err:      lastErr,
	}
}

// dial performs one connection attempt.
func (e *Establisher) dial(ctx context.Context, addr, user string, auth []ssh.AuthMethod, fast bool) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: e.hostKeyCallback(),
		Timeout:         e.Timeout,
	}
	if fast {
		config.Ciphers = fastCiphers
		config.MACs = fastMACs
	}

	dialer := &net.Dialer{Timeout: e.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// ClientConfig.Timeout only bounds the TCP phase. The deadline bounds
	// the handshake as well, so a server that accepts and then says nothing
	// cannot stall the attempt. Cleared once the connection is up.
	if e.Timeout > 0 {
		netConn.SetDeadline(time.Now().Add(e.Timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		return nil, err
	}
	netConn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// authMethods builds the authentication chain: SSH agent first when
// available, then the resolved keys or password.
func (e *Establisher) authMethods(host hostlist.Host, cred Credential) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if agentAuth := agentAuthMethod(); agentAuth != nil {
		methods = append(methods, agentAuth)
	}

	var signers []ssh.Signer
	for _, keyPath := range cred.KeyPaths {
		keyBytes, err := os.ReadFile(keyPath)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("unreadable private key", "host", host.Name, "path", keyPath, "error", err.Error())
			}
			continue
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("unparsable private key", "host", host.Name, "path", keyPath, "error", err.Error())
			}
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if cred.Password != "" {
		methods = append(methods, ssh.Password(cred.Password))
	}

	if len(methods) == 0 {
		return nil, &apperrors.NoCredentialError{Host: host.Name}
	}

	return methods, nil
}

// agentAuthMethod returns SSH agent authentication if an agent is reachable.
func agentAuthMethod() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	if agentConn, err := net.Dial("unix", sock); err == nil {
		return ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers)
	}
	return nil
}

// hostKeyCallback tries the user's known_hosts, then the system file, then
// accepts unknown keys. Fan-out across a fleet of freshly provisioned hosts
// cannot insist on prior key exchange.
func (e *Establisher) hostKeyCallback() ssh.HostKeyCallback {
	if homeDir, err := os.UserHomeDir(); err == nil {
		knownHostsFile := homeDir + "/.ssh/known_hosts"
		if _, err := os.Stat(knownHostsFile); err == nil {
			if callback, err := knownhosts.New(knownHostsFile); err == nil {
				return callback
			}
		}
	}

	if callback, err := knownhosts.New("/etc/ssh/ssh_known_hosts"); err == nil {
		return callback
	}

	return ssh.HostKeyCallback(func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if e.Logger != nil {
			e.Logger.Warn("host key verification disabled", "host", hostname)
		}
		return nil
	})
}
