package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token's payload cannot be decoded.
// Callers treat it as "not authenticated".
var ErrMalformedToken = errors.New("malformed token")

// nameClaims are checked in order when extracting the display name. The
// backend issues ASP.NET identity tokens, which may carry the long form.
var nameClaims = []string{
	"name",
	"unique_name",
	"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
}

// Decode returns the payload of a three-part signed token. Only the middle
// segment is read: the header and signature are ignored and nothing is
// verified, so the result is for display only and must never drive access
// control.
func Decode(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformedToken)
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedToken)
	}
	return claims, nil
}

// DisplayName decodes the token and returns its name claim.
func DisplayName(token string) (string, error) {
	claims, err := Decode(token)
	if err != nil {
		return "", err
	}
	for _, key := range nameClaims {
		if name, ok := claims[key].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", nil
}
