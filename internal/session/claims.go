package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are display-only facts read from a JWT access token. The signature
// is not verified.
type Claims struct {
	Subject   string
	Scopes    []string
	ExpiresAt time.Time
}

// Claims inspects the access token. Opaque tokens yield only the scopes the
// session payload declared.
func (s AuthState) Claims() Claims {
	c := InspectToken(s.AccessToken())
	if len(c.Scopes) == 0 {
		c.Scopes = strings.Fields(s.Scope())
	}
	return c
}

// InspectToken parses raw as an unverified JWT. It returns zero Claims for
// opaque or malformed tokens.
func InspectToken(raw string) Claims {
	if strings.Count(raw, ".") != 2 {
		return Claims{}
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return Claims{}
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if scope, ok := mc["scope"].(string); ok {
		c.Scopes = strings.Fields(scope)
	}
	if len(c.Scopes) == 0 {
		if scp, ok := mc["scp"].([]any); ok {
			for _, s := range scp {
				if str, ok := s.(string); ok {
					c.Scopes = append(c.Scopes, str)
				}
			}
		}
	}
	return c
}
