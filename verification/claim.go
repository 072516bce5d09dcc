package verification

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedClaim marks a verification payload that could not be parsed
// into an identity claim.
var ErrMalformedClaim = errors.New("verification: malformed identity claim")

// Claim is the identity assertion extracted from a wallet token.
type Claim struct {
	GivenName  string
	FamilyName string
	Nonce      string
}

// ParseClaim extracts the identity claim from a wallet-issued token. The
// token's signature is the wallet exchange's concern; this relying party
// validates structure only and trusts the exchange channel. Malformed input
// is rejected before any mandate lookup happens.
func ParseClaim(raw string) (Claim, error) {
	if raw == "" {
		return Claim{}, ErrMalformedClaim
	}
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrMalformedClaim, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claim{}, ErrMalformedClaim
	}

	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)
	nonce, _ := claims["nonce"].(string)
	if given == "" || family == "" {
		return Claim{}, ErrMalformedClaim
	}
	return Claim{GivenName: given, FamilyName: family, Nonce: nonce}, nil
}
