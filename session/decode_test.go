package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-verified"))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   Session
	}{
		{
			name:   "sub with profile",
			claims: jwt.MapClaims{"sub": "u-1", "email": "chef@bistro.test", "name": "Chef", "exp": exp.Unix()},
			want:   Session{UserID: "u-1", Email: "chef@bistro.test", Name: "Chef", ExpiresAt: exp},
		},
		{
			name:   "camel case user id",
			claims: jwt.MapClaims{"userId": "u-2"},
			want:   Session{UserID: "u-2"},
		},
		{
			name:   "snake case user id and username",
			claims: jwt.MapClaims{"user_id": "u-3", "username": "sous"},
			want:   Session{UserID: "u-3", Name: "sous"},
		},
		{
			name:   "numeric id",
			claims: jwt.MapClaims{"id": 42},
			want:   Session{UserID: "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, tt.claims)
			got, err := Decode(token)
			require.NoError(t, err)

			tt.want.Token = token
			assert.Equal(t, tt.want.UserID, got.UserID)
			assert.Equal(t, tt.want.Email, got.Email)
			assert.Equal(t, tt.want.Name, got.Name)
			assert.Equal(t, tt.want.Token, got.Token)
			assert.True(t, tt.want.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"not a jwt":      "definitely-not-a-token",
		"bad payload":    "eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln",
		"missing userid": "",
		"two segments":   "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1MSJ9",
		"payload array":  unsignedToken(`{"alg":"HS256"}`, `["u1"]`),
	}
	tests["missing userid"] = signToken(t, jwt.MapClaims{"email": "nobody@bistro.test"})

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(token)
			assert.ErrorIs(t, err, ErrMalformedToken)
			assert.Nil(t, got)
		})
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "u-1"})
	tampered := token[:len(token)-2] + "xx"

	got, err := Decode(tampered)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
}

func unsignedToken(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2ln"
}

func TestDecodeIgnoresHeader(t *testing.T) {
	tests := map[string]string{
		"no alg":           `{"typ":"JWT"}`,
		"unregistered alg": `{"alg":"XS999","typ":"JWT"}`,
		"alg none":         `{"alg":"none"}`,
		"header not json":  `not-json`,
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(unsignedToken(header, `{"sub":"u1","name":"Line Cook"}`))
			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
			assert.Equal(t, "Line Cook", got.Name)
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now), "no expiry never expires")
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}
