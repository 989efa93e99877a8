package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/cryptox"
	"github.com/authlab/authlab/pkg/idx"
)

const (
	authorizationCodeTTL = 10 * time.Minute
	oauthAccessTokenTTL  = 1 * time.Hour
)

// OAuthClient is a registered OAuth 2.0 client. The engine ships with one
// demo client configured at startup; there is no dynamic registration.
type OAuthClient struct {
	ID          string
	Secret      string
	RedirectURI string
}

// OAuthService implements the authorization code grant (RFC 6749 section
// 4.1) against the identity directory. Authorization codes and the tokens
// they mint are opaque random strings stored by fingerprint; the codes are
// strictly single-use.
type OAuthService struct {
	Store  store.Store
	Users  *UserService
	Client OAuthClient
}

// Authorize mints a single-use authorization code bound to the client, the
// redirect URI, the requested scope, and the consenting user. All three
// request parameters are required. The caller redirects the browser to
// redirectURI with the code and the client's state echoed back.
func (s *OAuthService) Authorize(ctx context.Context, clientID, redirectURI, scope, userID string) (string, error) {
	if clientID == "" || redirectURI == "" || scope == "" {
		return "", ErrInvalidRequest
	}
	if clientID != s.Client.ID {
		return "", ErrInvalidClient
	}
	if redirectURI != s.Client.RedirectURI {
		return "", ErrInvalidRequest
	}

	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	now := time.Now().UTC()
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
		ID:          idx.New().String(),
		CodeHash:    cryptox.FingerprintToken(code),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       scope,
		UserID:      userID,
		ExpiresAt:   now.Add(authorizationCodeTTL),
		CreatedAt:   now,
	}); err != nil {
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	return code, nil
}

// ExchangeCode redeems an authorization code for an opaque token pair. The
// code is marked used with a compare-and-set before any token is minted, so
// replaying an exchange can never produce a second pair.
func (s *OAuthService) ExchangeCode(ctx context.Context, code, clientID, clientSecret, redirectURI string) (domain.TokenPair, error) {
	if err := s.authenticateClient(clientID, clientSecret); err != nil {
		return domain.TokenPair{}, err
	}

	rec, err := s.Store.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, cryptox.FingerprintToken(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, fmt.Errorf("failed to look up authorization code: %w", err)
	}

	now := time.Now().UTC()
	switch {
	case rec.ClientID != clientID:
		return domain.TokenPair{}, ErrInvalidGrant
	case rec.RedirectURI != redirectURI:
		return domain.TokenPair{}, ErrInvalidGrant
	case now.After(rec.ExpiresAt):
		return domain.TokenPair{}, ErrInvalidGrant
	}

	if err := s.Store.AuthorizationCodes().MarkAuthorizationCodeUsed(ctx, rec.ID, now); err != nil {
		if errors.Is(err, store.ErrAlreadyUsed) || errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, fmt.Errorf("failed to mark authorization code used: %w", err)
	}

	return s.mintTokens(ctx, rec, now)
}

// RefreshAccessToken rotates the access token on the record the refresh
// token names. The old access token stops resolving in the same atomic step.
func (s *OAuthService) RefreshAccessToken(ctx context.Context, clientID, clientSecret, refreshToken string) (domain.TokenPair, error) {
	if err := s.authenticateClient(clientID, clientSecret); err != nil {
		return domain.TokenPair{}, err
	}

	access, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := time.Now().UTC()
	rec, err := s.Store.OAuthTokens().RotateAccessToken(ctx,
		cryptox.FingerprintToken(refreshToken),
		cryptox.FingerprintToken(access),
		now.Add(oauthAccessTokenTTL))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidGrant
		}
		return domain.TokenPair{}, fmt.Errorf("failed to rotate access token: %w", err)
	}
	if rec.ClientID != clientID {
		return domain.TokenPair{}, ErrInvalidGrant
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(oauthAccessTokenTTL.Seconds()),
	}, nil
}

// UserInfo resolves an opaque access token to the public profile of the user
// who approved it.
func (s *OAuthService) UserInfo(ctx context.Context, accessToken string) (domain.UserInfo, error) {
	rec, err := s.Store.OAuthTokens().GetOAuthTokenByAccessHash(ctx, cryptox.FingerprintToken(accessToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserInfo{}, ErrInvalidToken
		}
		return domain.UserInfo{}, fmt.Errorf("failed to look up access token: %w", err)
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		return domain.UserInfo{}, ErrInvalidToken
	}

	info, err := s.Users.UserInfo(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.UserInfo{}, ErrInvalidToken
		}
		return domain.UserInfo{}, err
	}
	return info, nil
}

// authenticateClient checks client credentials without leaking, via timing,
// which half was wrong.
func (s *OAuthService) authenticateClient(clientID, clientSecret string) error {
	idOK := cryptox.TimingSafeCompare(clientID, s.Client.ID)
	secretOK := cryptox.TimingSafeCompare(clientSecret, s.Client.Secret)
	if !idOK || !secretOK {
		return ErrInvalidClient
	}
	return nil
}

func (s *OAuthService) mintTokens(ctx context.Context, code domain.AuthorizationCode, now time.Time) (domain.TokenPair, error) {
	access, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.Store.OAuthTokens().CreateOAuthToken(ctx, domain.OAuthToken{
		ID:               idx.New().String(),
		AccessTokenHash:  cryptox.FingerprintToken(access),
		RefreshTokenHash: cryptox.FingerprintToken(refresh),
		ClientID:         code.ClientID,
		Scope:            code.Scope,
		UserID:           code.UserID,
		ExpiresAt:        now.Add(oauthAccessTokenTTL),
		CreatedAt:        now,
	}); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to store token pair: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(oauthAccessTokenTTL.Seconds()),
	}, nil
}
