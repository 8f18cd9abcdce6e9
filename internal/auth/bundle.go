package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// Bundle is the credential stored in a session: what the token endpoint
// returned, flattened so it can be serialized by any session store.
type Bundle struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scope        string
}

// NewBundle copies the fields of an OAuth token into a Bundle.
// Returns nil for a nil token.
func NewBundle(token *oauth2.Token) *Bundle {
	if token == nil {
		return nil
	}
	scope, _ := token.Extra("scope").(string)
	return &Bundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		Scope:        scope,
	}
}

// Token converts the bundle back into an OAuth token.
func (b *Bundle) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		TokenType:    b.TokenType,
		RefreshToken: b.RefreshToken,
		Expiry:       b.Expiry,
	}
}

// Expired reports whether the access token must not be used any more. It
// follows the oauth2 package's rule, which treats a token as expired slightly
// before its expiry time.
func (b *Bundle) Expired() bool {
	return !b.Token().Valid()
}
