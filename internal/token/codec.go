// Package token implements the HMAC-SHA256 JWT codec shared by the
// repo-token and link-token claim shapes (spec.md §4.1, §4.2).
package token

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec signs and verifies JWTs carrying a flat string-to-string claim
// map. Encode always overwrites the caller-supplied exp with now+ttl;
// Decode verifies the signature only, leaving expiry checks to the
// caller (FromHeaders in this package).
//
// Two independently configured Codec instances exist per deployment: one
// for repo tokens, one for link tokens, each with its own secret and TTL,
// so that compromising one never forges the other.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a Codec from a raw secret and a TTL in seconds.
func NewCodec(secret []byte, ttlSeconds uint64) *Codec {
	return &Codec{secret: secret, ttl: time.Duration(ttlSeconds) * time.Second}
}

// NewCodecFromFile reads the secret from path (trimmed, per spec.md §6's
// "*_FILE variables point at a file whose trimmed contents supply the
// value") and builds a Codec with the given TTL.
func NewCodecFromFile(path string, ttlSeconds uint64) (*Codec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret file %s: %w", path, err)
	}
	return NewCodec([]byte(strings.TrimSpace(string(data))), ttlSeconds), nil
}

// mapClaims adapts map[string]string to jwt.Claims so the golang-jwt
// signer/parser can operate on a flat claim bag instead of a struct.
type mapClaims map[string]string

func (c mapClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c mapClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c mapClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c mapClaims) GetIssuer() (string, error)                  { return "", nil }
func (c mapClaims) GetSubject() (string, error)                 { return "", nil }
func (c mapClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Encode signs claims, stamping exp = now + ttl over any caller-supplied
// value, and returns the compact JWT string.
func (c *Codec) Encode(claims map[string]string) (string, error) {
	augmented := make(mapClaims, len(claims)+1)
	for k, v := range claims {
		augmented[k] = v
	}
	exp := time.Now().Add(c.ttl).Unix()
	augmented["exp"] = strconv.FormatInt(exp, 10)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, augmented)
	return tok.SignedString(c.secret)
}

// Decode verifies the token's signature and returns its claim map. It
// does not check exp; the caller (e.g. FromHeaders) does that.
func (c *Codec) Decode(tokenString string) (map[string]string, error) {
	claims := &mapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("decode jwt: %w", err)
	}
	return map[string]string(*claims), nil
}
