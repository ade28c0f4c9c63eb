package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"taskwell/internal/apperrors"
)

const (
	keysRefreshInterval = time.Hour
	unknownKIDRefresh   = time.Minute
	googleIssuer        = "accounts.google.com"
	googleIssuerHTTP    = "https://accounts.google.com"
)

// GoogleIdentity is the verified part of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifierConfig configures a GoogleVerifier.
type GoogleVerifierConfig struct {
	ClientID   string
	CertsURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Now        func() time.Time
}

// GoogleVerifier validates Google ID tokens against Google's published RSA
// keys. The key set is refreshed in the background and on an unknown key id.
type GoogleVerifier struct {
	clientID string
	timeout  time.Duration
	now      func() time.Time
	keys     keyfunc.Keyfunc
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
}

// NewGoogleVerifier loads the key set from cfg.CertsURL. ctx bounds the
// background refresh. An unreachable key endpoint is not an error here; tokens
// are rejected until the keys can be fetched. Without a client id no keys are
// loaded and every token is rejected.
func NewGoogleVerifier(ctx context.Context, cfg GoogleVerifierConfig) (*GoogleVerifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	v := &GoogleVerifier{
		clientID: strings.TrimSpace(cfg.ClientID),
		timeout:  cfg.Timeout,
		now:      cfg.Now,
	}
	if v.clientID == "" {
		return v, nil
	}

	certsURL := cfg.CertsURL
	parsedCertsURL, err := url.ParseRequestURI(certsURL)
	if err != nil {
		return nil, fmt.Errorf("google keys storage: %w", err)
	}
	storage, err := jwkset.NewStorageFromHTTP(parsedCertsURL, jwkset.HTTPClientStorageOptions{
		Client:                    cfg.HTTPClient,
		Ctx:                       ctx,
		HTTPTimeout:               cfg.Timeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Printf("[warn] refresh google keys from %s: %v", certsURL, err)
		},
		RefreshInterval: keysRefreshInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("google keys storage: %w", err)
	}
	client, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{certsURL: storage},
		RateLimitWaitMax:  cfg.Timeout,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDRefresh), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("google keys client: %w", err)
	}
	v.keys, err = keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: client})
	if err != nil {
		return nil, fmt.Errorf("google keyfunc: %w", err)
	}
	return v, nil
}

// Verify validates rawToken and returns the identity it asserts. Every failure,
// including a timeout while fetching keys, is reported as an invalid token.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (GoogleIdentity, error) {
	ctx, span := otel.Tracer("taskwell/auth").Start(ctx, "google.verify_id_token")
	defer span.End()

	identity, err := v.verify(ctx, rawToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid google token")
		return GoogleIdentity{}, apperrors.Wrap(apperrors.KindUnauthorized, apperrors.CodeGoogleTokenInvalid, "Invalid Google token", err)
	}
	span.SetAttributes(attribute.Bool("google.email_verified", true))
	return identity, nil
}

func (v *GoogleVerifier) verify(ctx context.Context, rawToken string) (GoogleIdentity, error) {
	if v.clientID == "" {
		return GoogleIdentity{}, errors.New("google client id is not configured")
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return GoogleIdentity{}, errors.New("id token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var claims googleClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, v.keys.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("parse id token: %w", err)
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerHTTP {
		return GoogleIdentity{}, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return GoogleIdentity{}, errors.New("id token has no email")
	}
	if !emailVerified(claims.EmailVerified) {
		return GoogleIdentity{}, errors.New("google email is not verified")
	}

	return GoogleIdentity{Subject: claims.Subject, Email: email, Name: claims.Name}, nil
}

// emailVerified accepts both the boolean and the string form Google has used.
func emailVerified(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
