package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/companion-backend/internal/platform/ctxutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService verifies bearer tokens issued by the account service. Issuing
// is only used by local tooling and tests.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueAccessToken(userID int64) (string, error)
}

type AuthOptions struct {
	Secret    string
	Audience  string
	AccessTTL time.Duration
}

type authService struct {
	log       *logger.Logger
	secret    []byte
	audience  string
	accessTTL time.Duration
}

func NewAuthService(log *logger.Logger, opts AuthOptions) (AuthService, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, fmt.Errorf("auth: secret required")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	return &authService{
		log:       log.With("service", "AuthService"),
		secret:    []byte(opts.Secret),
		audience:  strings.TrimSpace(opts.Audience),
		accessTTL: opts.AccessTTL,
	}, nil
}

func (as *authService) IssueAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if as.audience != "" {
		claims.Audience = jwt.ClaimStrings{as.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if as.audience != "" {
		opts = append(opts, jwt.WithAudience(as.audience))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		as.log.Debug("token rejected", "error", err)
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return ctx, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID}), nil
}
