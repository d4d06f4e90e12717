// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/tilehearts/internal/models"
)

// CookieName is the cookie carrying the session token.
const CookieName = "auth_token"

var (
	ErrAuthRequired = errors.New("Authentication required")
	ErrAuthFailed   = errors.New("Authentication failed")
)

// Verifier turns a connection handshake into a verified identity.
type Verifier interface {
	Verify(r *http.Request) (models.Identity, error)
	VerifyToken(token string) (models.Identity, error)
}

// Issuer signs and verifies EdDSA session tokens.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration // 0 => tokens never expire
}

var _ Verifier = (*Issuer)(nil)

// ParseTokenExpireTime parses a TOKEN_EXPIRE_TIME value. "never", "0" and "" mean no expiry.
func ParseTokenExpireTime(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewIssuer generates a fresh ed25519 key pair at runtime.
func NewIssuer(expire time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// NewIssuerFromPath reads raw ed25519 private/public keys from file.
func NewIssuerFromPath(privatePath, publicPath string, expire time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 key size")
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
	}, nil
}

// CreateJWT signs a token for id: "sub" = id.ID, plus email, name, session id and guest flag.
func (i *Issuer) CreateJWT(id models.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":   id.ID,
		"name":  id.Name,
		"email": id.Email,
		"sid":   id.SessionID,
		"guest": id.IsGuest,
		"iat":   time.Now().Unix(),
	}
	if i.expire != 0 {
		claims["exp"] = time.Now().Add(i.expire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// IssueGuest creates an anonymous identity with a fresh id and returns it with its token.
func (i *Issuer) IssueGuest(name string) (models.Identity, string, error) {
	id := models.Identity{
		ID:        uuid.NewString(),
		Name:      name,
		SessionID: uuid.NewString(),
		IsGuest:   true,
	}
	token, err := i.CreateJWT(id)
	if err != nil {
		return models.Identity{}, "", err
	}
	return id, token, nil
}

// VerifyToken checks the signature and expiry of tokenString and returns its identity.
func (i *Issuer) VerifyToken(tokenString string) (models.Identity, error) {
	if tokenString == "" {
		return models.Identity{}, ErrAuthRequired
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if !t.Valid {
		return models.Identity{}, ErrAuthFailed
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, ErrAuthFailed
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return models.Identity{}, fmt.Errorf("%w: missing sub in jwt", ErrAuthFailed)
	}

	id := models.Identity{ID: sub}
	id.Name, _ = claims["name"].(string)
	id.Email, _ = claims["email"].(string)
	id.SessionID, _ = claims["sid"].(string)
	id.IsGuest, _ = claims["guest"].(bool)
	return id, nil
}

// Verify authenticates a request using, in order, the Authorization bearer header, the
// auth_token cookie, or the token query parameter (browsers cannot set headers on websockets).
func (i *Issuer) Verify(r *http.Request) (models.Identity, error) {
	return i.VerifyToken(TokenFromRequest(r))
}

// TokenFromRequest extracts a session token from r, or returns "".
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
