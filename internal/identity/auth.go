package identity

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
	jwt "github.com/golang-jwt/jwt/v5"
)

type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

type contextKey string

const contextKeyIdentity contextKey = "identity"

// WithIdentity stores the authenticated caller in ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKeyIdentity).(domain.Identity)
	return id, ok
}

// Authenticator validates HS256 bearer tokens. The user ID comes from the
// "email" claim, falling back to "sub"; the optional "role" claim feeds the
// policy resolver.
type Authenticator struct {
	cfg    AuthConfig
	logger *log.Logger
	secret []byte
}

func NewAuthenticator(cfg AuthConfig, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

func (a *Authenticator) Enabled() bool {
	return a.cfg.Enabled
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		id, err := a.Parse(tokenString)
		if err != nil {
			a.logger.Printf("auth: token validation failed: %v", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Parse validates tokenString and returns the identity it carries.
func (a *Authenticator) Parse(tokenString string) (domain.Identity, error) {
	if len(a.secret) == 0 {
		return domain.Identity{}, errors.New("auth secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, errors.New("claims not map")
	}

	userID, _ := claims["email"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Identity{}, errors.New("token carries no email or subject")
	}
	role, _ := claims["role"].(string)
	return domain.Identity{UserID: userID, Role: role}, nil
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
