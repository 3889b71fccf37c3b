package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
)

// Permissions checked by the API endpoints.
const (
	PermSendSMS      = "can_send_sms"
	PermViewSMSStats = "can_view_sms_statistics"
	PermViewPCMStats = "can_view_pcm_statistics"
)

type authUser struct {
	password string
	perms    map[string]bool
}

// Authenticator enforces HTTP basic auth against a static user table.
type Authenticator struct {
	realm string
	users map[string]authUser
}

// NewAuthenticator parses entries of the form "name:password:perm1|perm2".
// The permission list may be empty; such a user authenticates but passes no
// permission check.
func NewAuthenticator(realm string, entries []string) (*Authenticator, error) {
	users := make(map[string]authUser, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed auth user entry %q", entry)
		}
		u := authUser{password: parts[1], perms: map[string]bool{}}
		if len(parts) == 3 {
			for _, p := range strings.Split(parts[2], "|") {
				if p = strings.TrimSpace(p); p != "" {
					u.perms[p] = true
				}
			}
		}
		users[parts[0]] = u
	}
	return &Authenticator{realm: realm, users: users}, nil
}

// Require wraps a handler so it only runs for a user holding perm.
// Missing or bad credentials get 401 with a WWW-Authenticate challenge,
// an authenticated user without the permission gets 403.
func (a *Authenticator) Require(perm string, next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		user, ok := a.authenticate(ctx)
		if !ok {
			ctx.Response.Header.Set("WWW-Authenticate", `Basic realm="`+a.realm+`"`)
			writeError(ctx, xhttp.StatusUnauthorized, "authentication required")
			return
		}
		if perm != "" && !user.perms[perm] {
			writeError(ctx, xhttp.StatusForbidden, "permission denied")
			return
		}
		next(ctx)
	}
}

func (a *Authenticator) authenticate(ctx *xhttp.RequestCtx) (authUser, bool) {
	header := string(ctx.Request.Header.Peek("Authorization"))
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return authUser{}, false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return authUser{}, false
	}
	name, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return authUser{}, false
	}
	user, ok := a.users[name]
	if !ok {
		return authUser{}, false
	}
	if subtle.ConstantTimeCompare([]byte(user.password), []byte(password)) != 1 {
		return authUser{}, false
	}
	return user, true
}
