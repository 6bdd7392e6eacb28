// Package identity derives the CI run identity from the runtime token.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
)

// ScopePrefix marks the scope that carries the backend run identifiers:
// Actions.Results:<workflowRunId>:<jobRunId>.
const ScopePrefix = "Actions.Results"

// Token errors.
var (
	ErrMissingToken = errors.New("runtime token is empty")
	ErrMalformed    = errors.New("runtime token is malformed")
	ErrNoRunScope   = errors.New("runtime token has no run scope")
)

// FromToken reads the run identity from the scp claim of a runtime
// token. The signature is not verified; the token is the caller's own
// credential and is checked by the issuer on use.
func FromToken(token string) (artifact.RunIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return artifact.RunIdentity{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return artifact.RunIdentity{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	scp, ok := claims["scp"].(string)
	if !ok {
		return artifact.RunIdentity{}, fmt.Errorf("%w: scp claim missing", ErrNoRunScope)
	}

	for _, scope := range strings.Fields(scp) {
		parts := strings.Split(scope, ":")
		if parts[0] != ScopePrefix {
			continue
		}
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return artifact.RunIdentity{}, fmt.Errorf("%w: %q", ErrMalformed, scope)
		}
		return artifact.NewRunIdentity(parts[1], parts[2]), nil
	}
	return artifact.RunIdentity{}, ErrNoRunScope
}

// Resolve returns the identity from token, or a timestamp identity for
// now when the token carries none.
func Resolve(token string, now time.Time) artifact.RunIdentity {
	run, err := FromToken(token)
	if err == nil {
		return run
	}

	logging.Warn().
		Add(logging.Component("identity")).
		Add(logging.ErrorField(err)).
		Msg("run identity unavailable, keying artifact by upload time")
	return artifact.TimestampIdentity(now)
}
