package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	authutils "github.com/gmaiocc/itic-website-sub000/v1/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	defaultJWKSRefreshInterval = time.Hour
	// minimum gap between refreshes triggered by an unknown key id
	minJWKSRefetchInterval = time.Minute
)

// JWTAuthConfig configures token verification. At least one of JWKSURL and
// Secret must be set; Secret enables HS256 tokens.
type JWTAuthConfig struct {
	JWKSURL         string
	Issuer          string
	Audience        string
	Secret          string
	HTTPClient      *http.Client
	RefreshInterval time.Duration
}

// Validate checks the configuration
func (c JWTAuthConfig) Validate() error {
	if c.JWKSURL == "" && c.Secret == "" {
		return fmt.Errorf("either a JWKS URL or a JWT secret is required")
	}
	return nil
}

// TokenVerifier verifies access tokens against the provider's signing keys
type TokenVerifier struct {
	config JWTAuthConfig
	parser *jwt.Parser

	keyMutex      sync.RWMutex
	keySet        jwk.Set
	lastFetchTime time.Time
}

// NewTokenVerifier creates a verifier. Keys are fetched lazily on first use.
func NewTokenVerifier(config JWTAuthConfig) (*TokenVerifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = defaultJWKSRefreshInterval
	}

	methods := []string{}
	if config.JWKSURL != "" {
		methods = append(methods, "RS256", "RS384", "RS512", "ES256", "ES384")
	}
	if config.Secret != "" {
		methods = append(methods, "HS256")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &TokenVerifier{config: config, parser: jwt.NewParser(opts...)}, nil
}

// Verify checks the signature and standard claims of tokenString
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(v.config.Secret), nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			kid, _ := token.Header["kid"].(string)
			return v.publicKey(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("subject (sub) claim is missing")
	}
	return claims, nil
}

// publicKey returns the raw key for kid, refreshing the key set when it is
// stale or does not know kid
func (v *TokenVerifier) publicKey(ctx context.Context, kid string) (interface{}, error) {
	v.keyMutex.RLock()
	set, fetched := v.keySet, v.lastFetchTime
	v.keyMutex.RUnlock()

	if set != nil && time.Since(fetched) < v.config.RefreshInterval {
		if key, ok := lookupKey(set, kid); ok {
			return rawKey(key)
		}
	}

	set, err := v.refresh(ctx, set == nil || time.Since(fetched) >= v.config.RefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
	}
	key, ok := lookupKey(set, kid)
	if !ok {
		return nil, fmt.Errorf("key with kid '%s' not found in JWKS", kid)
	}
	return rawKey(key)
}

// refresh fetches the key set. Unless force is set, a recent fetch is reused.
func (v *TokenVerifier) refresh(ctx context.Context, force bool) (jwk.Set, error) {
	v.keyMutex.Lock()
	defer v.keyMutex.Unlock()

	if !force && v.keySet != nil && time.Since(v.lastFetchTime) < minJWKSRefetchInterval {
		return v.keySet, nil
	}
	if v.config.JWKSURL == "" {
		return nil, errors.New("no JWKS URL configured")
	}

	start := time.Now()
	set, err := jwk.Fetch(ctx, v.config.JWKSURL, jwk.WithHTTPClient(v.config.HTTPClient))
	monitoring.RecordExternalCall(ctx, "jwks", "fetch", time.Since(start), err)
	if err != nil {
		if v.keySet != nil {
			slog.Warn("JWKS refresh failed, keeping cached keys", "error", err)
			return v.keySet, nil
		}
		return nil, err
	}

	v.keySet = set
	v.lastFetchTime = time.Now()
	slog.Info("JWKS refreshed", "keyCount", set.Len())
	return set, nil
}

func lookupKey(set jwk.Set, kid string) (jwk.Key, bool) {
	if kid != "" {
		return set.LookupKeyID(kid)
	}
	// tokens without kid are accepted only when the set is unambiguous
	if set.Len() == 1 {
		return set.Key(0)
	}
	return nil, false
}

func rawKey(key jwk.Key) (interface{}, error) {
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JWK: %w", err)
	}
	return raw, nil
}

// ProfileFinder loads the profile of a verified identity, or nil when absent
type ProfileFinder interface {
	FindProfile(ctx context.Context, identityID string) (*models.Profile, error)
}

// JWTAuthMiddleware authenticates requests and resolves the caller's access
type JWTAuthMiddleware struct {
	verifier   *TokenVerifier
	profiles   ProfileFinder
	classifier *models.PositionClassifier
}

// NewJWTAuthMiddleware creates a new authentication middleware
func NewJWTAuthMiddleware(verifier *TokenVerifier, profiles ProfileFinder, classifier *models.PositionClassifier) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{verifier: verifier, profiles: profiles, classifier: classifier}
}

// AuthenticateJWT rejects requests without a valid bearer token and stores
// the resolved caller in the request context
func (m *JWTAuthMiddleware) AuthenticateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := authutils.ExtractBearerToken(r)
		if err != nil {
			utils.RespondWithAPIError(w, r, apperrors.UnauthorizedError("Authentication required"))
			return
		}

		claims, err := m.verifier.Verify(r.Context(), tokenString)
		if err != nil {
			slog.Warn("Rejected access token", "path", r.URL.Path, "error", err)
			utils.RespondWithAPIError(w, r, apperrors.UnauthorizedError("Invalid or expired token"))
			return
		}

		var profile *models.Profile
		if m.profiles != nil {
			profile, err = m.profiles.FindProfile(r.Context(), claims.Subject)
			if err != nil {
				utils.RespondWithAPIError(w, r, err)
				return
			}
		}

		user := models.NewAuthenticatedUser(claims, profile, m.classifier)
		next.ServeHTTP(w, r.WithContext(authutils.SetAuthenticatedUser(r.Context(), user)))
	})
}
