// Package oidc performs federated sign-in against an OpenID Connect issuer.
package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"healthreport/internal/domain"
)

// DefaultIssuer is Google's OpenID Connect issuer.
const DefaultIssuer = "https://accounts.google.com"

// Config holds the OAuth2 client registration.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider exchanges authorization codes for verified federated profiles.
type Provider struct {
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// New discovers the issuer and builds a Provider.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &Provider{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL returns the issuer's consent URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Claims are the ID-token claims mapped onto a federated profile.
type Claims struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Profile converts claims to a domain profile.
func (c Claims) Profile() (domain.FederatedProfile, error) {
	if c.Sub == "" {
		return domain.FederatedProfile{}, errors.New("id token has no subject")
	}
	return domain.FederatedProfile{
		GoogleID:    c.Sub,
		Email:       c.Email,
		DisplayName: c.Name,
		PictureURL:  c.Picture,
	}, nil
}

// Exchange trades code for tokens, verifies the ID token and returns the
// profile it asserts.
func (p *Provider) Exchange(ctx context.Context, code string) (domain.FederatedProfile, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return domain.FederatedProfile{}, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("parse claims: %w", err)
	}
	return claims.Profile()
}
