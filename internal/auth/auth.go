// Package auth turns a signed identity token into the current user.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
)

var (
	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("missing token")

	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("invalid token")
)

// clockSkew is tolerated on exp and nbf.
const clockSkew = time.Minute

// Identity is the signed-in user.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Author returns the name recorded on activity and comments.
func (id Identity) Author() string {
	switch {
	case id.DisplayName != "":
		return id.DisplayName
	case id.Email != "":
		return id.Email
	default:
		return id.UserID
	}
}

// Scope returns the personal-board scope, or a project board's scope
// when projectID is set.
func (id Identity) Scope(projectID string) store.Scope {
	return store.Scope{UserID: id.UserID, ProjectID: projectID}
}

// Verifier checks tokens signed either with a shared HMAC secret or with
// an RSA key published in a JWKS.
type Verifier struct {
	secret   []byte
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
}

// NewVerifier builds a verifier from config. With a JWKS URL the key set
// is fetched now and refreshed in the background until Close.
func NewVerifier(cfg model.AuthConfig) (*Verifier, error) {
	v := &Verifier{audience: cfg.Audience, issuer: cfg.Issuer}
	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
	}
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("loading jwks: %w", err)
		}
		v.jwks = jwks
	}
	if v.secret == nil && v.jwks == nil {
		return nil, errors.New("auth: neither secret nor jwks_url configured")
	}
	return v, nil
}

// NewHMACVerifier verifies HS256 tokens against secret.
func NewHMACVerifier(secret []byte, audience, issuer string) *Verifier {
	return &Verifier{secret: secret, audience: audience, issuer: issuer}
}

// Close stops the background JWKS refresh.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// FromHeader verifies the token of an "Authorization: Bearer" header.
func (v *Verifier) FromHeader(h string) (Identity, error) {
	if h == "" {
		return Identity{}, ErrMissingToken
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Identity{}, fmt.Errorf("%w: bad auth header", ErrInvalidToken)
	}
	return v.Verify(parts[1])
}

// Verify checks the signature and standard claims of tokenStr.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Identity{}, ErrMissingToken
	}
	if strings.Count(tokenStr, ".") != 2 {
		return Identity{}, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.Parse(tokenStr, v.keyFor)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	now := time.Now()
	if !claims.VerifyExpiresAt(now.Add(-clockSkew).Unix(), true) {
		return Identity{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if !claims.VerifyNotBefore(now.Add(clockSkew).Unix(), false) {
		return Identity{}, fmt.Errorf("%w: token not valid yet", ErrInvalidToken)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return Identity{}, fmt.Errorf("%w: invalid audience", ErrInvalidToken)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, fmt.Errorf("%w: invalid issuer", ErrInvalidToken)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	return Identity{UserID: sub, DisplayName: name, Email: email}, nil
}

func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret == nil {
			return nil, errors.New("hmac tokens not accepted")
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, errors.New("rsa tokens not accepted")
		}
		return v.jwks.Keyfunc(token)
	default:
		return nil, errors.New("invalid signing method")
	}
}
