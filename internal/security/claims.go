package security

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// gatewayTimeLayout is the format API Gateway uses when it renders Cognito time claims as text.
const gatewayTimeLayout = "Mon Jan 02 15:04:05 MST 2006"

var timeClaims = []string{"exp", "iat", "nbf", "auth_time"}

// Claims wraps the claim set of an authenticated caller.
type Claims struct {
	jwt.MapClaims
}

// newClaims normalizes time claims to numeric dates so the jwt accessors can read them.
func newClaims(raw map[string]any) (*Claims, error) {
	claims := make(jwt.MapClaims, len(raw))
	for k, v := range raw {
		claims[k] = v
	}

	for _, key := range timeClaims {
		v, ok := claims[key]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			continue
		}
		parsed, err := parseTimeClaim(s)
		if err != nil {
			return nil, fmt.Errorf("claim %q: %w", key, err)
		}
		claims[key] = parsed
	}

	return &Claims{MapClaims: claims}, nil
}

func parseTimeClaim(s string) (float64, error) {
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(gatewayTimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("unrecognized time value %q", s)
	}
	return float64(t.Unix()), nil
}

func stringClaims(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// Subject returns the "sub" claim.
func (c *Claims) Subject() string {
	sub, _ := c.GetSubject()
	return sub
}

// Username returns "cognito:username", falling back to "username".
func (c *Claims) Username() string {
	if name := c.String("cognito:username"); name != "" {
		return name
	}
	return c.String("username")
}

// Issuer returns the "iss" claim.
func (c *Claims) Issuer() string {
	iss, _ := c.GetIssuer()
	return iss
}

// Audience returns "aud", or "client_id" for access tokens.
func (c *Claims) Audience() []string {
	if aud, err := c.GetAudience(); err == nil && len(aud) > 0 {
		return aud
	}
	if id := c.String("client_id"); id != "" {
		return []string{id}
	}
	return nil
}

// ExpiresAt returns the "exp" claim, or the zero time.
func (c *Claims) ExpiresAt() time.Time {
	if exp, err := c.GetExpirationTime(); err == nil && exp != nil {
		return exp.Time
	}
	return time.Time{}
}

// IssuedAt returns the "iat" claim, or the zero time.
func (c *Claims) IssuedAt() time.Time {
	if iat, err := c.GetIssuedAt(); err == nil && iat != nil {
		return iat.Time
	}
	return time.Time{}
}

// Email returns the "email" claim.
func (c *Claims) Email() string {
	return c.String("email")
}

// PhoneNumber returns the "phone_number" claim.
func (c *Claims) PhoneNumber() string {
	return c.String("phone_number")
}

// Groups returns "cognito:groups". The gateway may render the list as "[a b]", "a,b" or a JSON array.
func (c *Claims) Groups() []string {
	switch v := c.MapClaims["cognito:groups"].(type) {
	case []any:
		groups := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
		return groups
	case []string:
		return v
	case string:
		trimmed := strings.Trim(v, "[]")
		return strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == ' ' })
	default:
		return nil
	}
}

// String returns a string claim, or "" when absent or not a string.
func (c *Claims) String(key string) string {
	s, _ := c.MapClaims[key].(string)
	return s
}
