package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/profilehub/internal/common"
)

// parseAccessClaims extracts the subject, email, and expiry from an access
// token. The token is not verified: the client has no signing key, and the
// server validates every request anyway. The claims only drive query scoping
// and the refresh schedule.
func parseAccessClaims(token string) (userID, email string, exp time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, perr := jwt.NewParser().ParseUnverified(token, claims); perr != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, perr)
	}

	sub, serr := claims.GetSubject()
	if serr != nil || sub == "" {
		return "", "", time.Time{}, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	email, _ = claims["email"].(string)

	nd, derr := claims.GetExpirationTime()
	if derr != nil || nd == nil {
		return "", "", time.Time{}, fmt.Errorf("%w: missing expiry", common.ErrInvalidToken)
	}

	return sub, email, nd.Time, nil
}
