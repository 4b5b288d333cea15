package auth

import (
	"context"

	"github.com/utafrali/ServiceDeskGo/internal/domain"
	apperrors "github.com/utafrali/ServiceDeskGo/pkg/errors"
)

// UserLookup fetches the current user record for an authenticated subject.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// SessionChecker reports whether a user still has at least one live refresh
// session.
type SessionChecker interface {
	UserHasValidSessions(ctx context.Context, userID string) (bool, error)
}

// AccessTokenValidator verifies access tokens against the signing key and the
// current user state. When revocation enforcement is on, a valid signature is
// not enough: the user must also hold at least one live session, so revoking
// all sessions takes effect before the access token expires.
type AccessTokenValidator struct {
	jwt               *JWTManager
	users             UserLookup
	sessions          SessionChecker
	enforceRevocation bool
}

// NewAccessTokenValidator creates a validator. enforceRevocation trades a
// storage round trip per request for immediate logout semantics.
func NewAccessTokenValidator(jwt *JWTManager, users UserLookup, sessions SessionChecker, enforceRevocation bool) *AccessTokenValidator {
	return &AccessTokenValidator{
		jwt:               jwt,
		users:             users,
		sessions:          sessions,
		enforceRevocation: enforceRevocation,
	}
}

// Verify validates the token signature and expiry, confirms the subject still
// exists, and optionally checks for a live session. Returns the principal
// refreshed from the current user record.
func (v *AccessTokenValidator) Verify(ctx context.Context, token string) (*Principal, error) {
	claims, err := v.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired access token")
	}

	user, err := v.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.Unauthorized("user not found")
	}

	if v.enforceRevocation {
		ok, err := v.sessions.UserHasValidSessions(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.Unauthorized("session has been revoked")
		}
	}

	p := claims.Principal()
	// Refresh mutable fields from the current record so stale claims do not
	// outlive a role or status change.
	p.Role = user.Role
	p.Status = user.Status
	p.IsActive = user.IsActive
	p.ProfileComplete = user.ProfileComplete
	p.EmailVerified = user.EmailVerified()
	return p, nil
}
