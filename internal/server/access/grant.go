package access

import (
	"time"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// GrantClaims is the payload of a download grant: a short-lived signed
// statement that one item may be fetched with the listed capabilities.
// The routing layer validates it without touching share-link state again.
type GrantClaims struct {
	jwt.RegisteredClaims
	ItemID       string   `json:"item_id"`
	Capabilities []string `json:"capabilities"`
}

// IssueGrant signs a grant for itemID valid for ttl.
func IssueGrant(itemID string, caps models.CapabilitySet, secret []byte, ttl time.Duration) (string, error) {
	capStrings := make([]string, len(caps))
	for i, c := range caps {
		capStrings[i] = string(c)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		ItemID:       itemID,
		Capabilities: capStrings,
	})

	return token.SignedString(secret)
}

// ParseGrant validates tokenString and returns its claims.
func ParseGrant(tokenString string, secret []byte) (*GrantClaims, error) {
	claims := &GrantClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, common.ErrInvalidGrant
	}
	if !token.Valid {
		return nil, common.ErrInvalidGrant
	}

	return claims, nil
}
