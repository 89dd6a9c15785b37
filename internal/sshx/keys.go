// Package sshx establishes SSH sessions and runs the remote command,
// converting every failure into a printable per-host diagnostic.
package sshx

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/cwt/hydra/internal/errors"
	"github.com/cwt/hydra/internal/hostlist"
)

// commonKeyNames is the fixed-order fallback scan under the user's key
// directory. Order matters and is part of the resolver contract.
var commonKeyNames = []string{
	"id_ed25519",
	"id_rsa",
	"id_ecdsa",
	"id_dsa",
}

// Credential is the resolved authentication material for one host: either a
// list of candidate private key paths or a password.
type Credential struct {
	KeyPaths []string
	Password string
}

// ResolveCredential selects the authentication material to offer a host.
//
// Precedence: an explicit per-host reference wins over the global default
// key, which wins over the fallback scan of conventional key locations.
// A per-host reference that does not look like a filesystem path is treated
// as a password. Pure apart from file existence checks.
func ResolveCredential(host, keyRef, defaultKey, keyDir string) (Credential, error) {
	if keyRef != "" && keyRef != hostlist.UseDefaultKey {
		if looksLikePath(keyRef) {
			return Credential{KeyPaths: []string{expandHome(keyRef)}}, nil
		}
		return Credential{Password: keyRef}, nil
	}

	if defaultKey != "" {
		return Credential{KeyPaths: []string{expandHome(defaultKey)}}, nil
	}

	if keyDir == "" {
		keyDir = DefaultKeyDir()
	}

	var found []string
	for _, name := range commonKeyNames {
		path := filepath.Join(keyDir, name)
		if _, err := os.Stat(path); err == nil {
			found = append(found, path)
		}
	}

	if len(found) == 0 {
		return Credential{}, &apperrors.NoCredentialError{Host: host}
	}

	return Credential{KeyPaths: found}, nil
}

// DefaultKeyDir returns the conventional key directory, ~/.ssh.
func DefaultKeyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ssh"
	}
	return filepath.Join(home, ".ssh")
}

// looksLikePath distinguishes key paths from passwords in the host file's
// credential column. Anything addressed like a file is a key path.
func looksLikePath(ref string) bool {
	return strings.HasPrefix(ref, "/") ||
		strings.HasPrefix(ref, "~") ||
		strings.HasPrefix(ref, "./") ||
		strings.HasPrefix(ref, "../") ||
		strings.ContainsRune(ref, os.PathSeparator)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
