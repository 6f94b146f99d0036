package session

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned by Decode for tokens without a readable identity.
var ErrMalformedToken = errors.New("session: malformed token")

var userIDClaims = []string{"sub", "userId", "user_id", "id"}

// Decode reads the identity claims of a JWT without verifying its signature.
// Only the payload segment is read; the header and signature are ignored.
// The result is a display hint only and must never drive authorization.
func Decode(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}

	s := &Session{Token: token}
	for _, name := range userIDClaims {
		if id := claimString(claims, name); id != "" {
			s.UserID = id
			break
		}
	}
	if s.UserID == "" {
		return nil, ErrMalformedToken
	}

	s.Email = claimString(claims, "email")
	s.Name = claimString(claims, "name")
	if s.Name == "" {
		s.Name = claimString(claims, "username")
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Expired reports whether the token carries an expiry that lies before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
