// Package token carries the shared bearer token between client and server.
package token

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// MetadataKey is the lowercase gRPC metadata key holding the token.
const MetadataKey = "authorization"

var ErrInvalidToken = errors.New("invalid token")

// Tokens implements credentials.PerRPCCredentials over an oauth2.TokenSource.
type Tokens struct {
	source oauth2.TokenSource
}

// NewTokens sends the static bearer token tok. An empty tok sends nothing.
func NewTokens(tok string) *Tokens {
	if tok == "" {
		return &Tokens{}
	}
	return FromSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}))
}

// FromSource caches tokens of src until they expire.
func FromSource(src oauth2.TokenSource) *Tokens {
	return &Tokens{source: oauth2.ReuseTokenSource(nil, src)}
}

func (t *Tokens) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	if t.source == nil {
		return map[string]string{}, nil
	}

	tok, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	if !tok.Valid() {
		return nil, ErrInvalidToken
	}
	return map[string]string{MetadataKey: tok.Type() + " " + tok.AccessToken}, nil
}

func (t *Tokens) RequireTransportSecurity() bool {
	return false
}

// Valid reports whether one of the authorization values carries want.
// An empty want accepts everything.
func Valid(authorization []string, want string) bool {
	if want == "" {
		return true
	}
	for _, a := range authorization {
		got := strings.TrimPrefix(a, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
			return true
		}
	}
	return false
}
