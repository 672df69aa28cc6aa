package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/mikecalendo/gh-serv/pkg/config"
)

// Role is the access level resolved for a single request. Roles are mutually
// exclusive and recomputed per request; no session state exists.
type Role int

const (
	// RoleAnonymous has no credentials; allowed read/write only on active
	// repositories.
	RoleAnonymous Role = iota

	// RoleManager holds the derived key for exactly one repository.
	RoleManager

	// RoleAdmin holds the global admin secret.
	RoleAdmin
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	default:
		return "anonymous"
	}
}

// Credentials is a username/secret pair extracted from a request.
type Credentials struct {
	Username string
	Secret   string
	Present  bool
}

// FromRequest extracts basic-auth credentials from an HTTP request. Absent
// or malformed credentials yield a zero Credentials value, never an error.
func FromRequest(r *http.Request) Credentials {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return Credentials{}
	}
	return Credentials{Username: user, Secret: pass, Present: true}
}

// Resolve determines the role granted by creds. The manager role requires a
// repository id; with repoID empty, manager credentials resolve to
// anonymous. All secret comparisons are constant time. Resolve never fails:
// anything unrecognized is anonymous.
func Resolve(creds Credentials, cfg config.AuthConfig, repoID string) Role {
	if !creds.Present {
		return RoleAnonymous
	}

	switch creds.Username {
	case "admin":
		if secretsEqual(creds.Secret, cfg.AdminSecret) {
			return RoleAdmin
		}
	case "manager":
		if repoID == "" {
			return RoleAnonymous
		}
		if secretsEqual(creds.Secret, ManagerKey(repoID, cfg.ManagerSecret)) {
			return RoleManager
		}
	}
	return RoleAnonymous
}

// Elevated reports whether creds grant full access to the repository:
// either the admin role, or the manager role for that repository.
func Elevated(creds Credentials, cfg config.AuthConfig, repoID string) bool {
	return Resolve(creds, cfg, repoID) != RoleAnonymous
}

func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
