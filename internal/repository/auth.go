package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// AuthRepository handles password authentication against the backend
type AuthRepository struct {
	client *Client
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(client *Client) *AuthRepository {
	return &AuthRepository{client: client}
}

// tokenResponse is the session payload of the auth endpoints
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	// sign-up without a session answers with the bare user
	ID    string `json:"id"`
	Email string `json:"email"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accessClaims are the fields read from the backend access token
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn exchanges credentials for a session
func (r *AuthRepository) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, apperr.Invalid("credentials", "email and password are required")
	}
	var resp tokenResponse
	err := r.client.do(ctx, request{
		op:     "sign in",
		method: http.MethodPost,
		path:   "auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	sess, err := sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	r.client.SetAccessToken(sess.AccessToken)
	return sess, nil
}

// SignUp registers a new account. The session is nil when the backend
// requires e-mail confirmation first.
func (r *AuthRepository) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, apperr.Invalid("credentials", "email and password are required")
	}
	var resp tokenResponse
	err := r.client.do(ctx, request{
		op:     "sign up",
		method: http.MethodPost,
		path:   "auth/v1/signup",
		body:   credentials{Email: email, Password: password},
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	sess, err := sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	r.client.SetAccessToken(sess.AccessToken)
	return sess, nil
}

// Refresh trades a refresh token for a new session
func (r *AuthRepository) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, apperr.Auth("refresh session", "no session", nil)
	}
	var resp tokenResponse
	err := r.client.do(ctx, request{
		op:     "refresh session",
		method: http.MethodPost,
		path:   "auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		auth:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	sess, err := sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	r.client.SetAccessToken(sess.AccessToken)
	return sess, nil
}

// SignOut revokes the current session. The local token is dropped even
// when the backend call fails.
func (r *AuthRepository) SignOut(ctx context.Context) error {
	defer r.client.SetAccessToken("")
	if r.client.AccessToken() == "" {
		return nil
	}
	return r.client.do(ctx, request{
		op:     "sign out",
		method: http.MethodPost,
		path:   "auth/v1/logout",
	}, nil)
}

// sessionFrom builds a session, filling identity and expiry from the
// access token claims when the response omits them
func sessionFrom(resp tokenResponse) (*models.Session, error) {
	if resp.AccessToken == "" {
		return nil, apperr.Auth("session", "backend returned no access token", nil)
	}
	claims, err := parseAccessClaims(resp.AccessToken)
	if err != nil {
		return nil, apperr.Auth("session", "malformed access token", err)
	}

	sess := &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User: models.Identity{
			ID:    resp.User.ID,
			Email: resp.User.Email,
		},
	}
	if sess.User.ID == "" {
		sess.User.ID = claims.Subject
	}
	if sess.User.Email == "" {
		sess.User.Email = claims.Email
	}

	switch {
	case resp.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case claims.ExpiresAt != nil:
		sess.ExpiresAt = claims.ExpiresAt.Time
	case resp.ExpiresIn > 0:
		sess.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	if sess.User.ID == "" {
		return nil, apperr.Auth("session", "access token has no subject", nil)
	}
	return sess, nil
}

// parseAccessClaims reads the token claims without verifying the
// signature; the backend verifies tokens, the client only needs identity
// and expiry
func parseAccessClaims(token string) (*accessClaims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &claims, nil
}
