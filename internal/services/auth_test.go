package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/companion-backend/internal/platform/ctxutil"
	"github.com/yungbote/companion-backend/internal/platform/logger"
)

func newAuth(t *testing.T, audience string, ttl time.Duration) AuthService {
	t.Helper()
	as, err := NewAuthService(logger.Nop(), AuthOptions{Secret: "s3cret", Audience: audience, AccessTTL: ttl})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return as
}

func TestAuthRoundTrip(t *testing.T) {
	as := newAuth(t, "fastapi-users:auth", time.Hour)
	tok, err := as.IssueAccessToken(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ctx, err := as.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != 42 {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestAuthRejects(t *testing.T) {
	as := newAuth(t, "fastapi-users:auth", time.Hour)
	otherAudience, _ := newAuth(t, "someone-else", time.Hour).IssueAccessToken(1)
	expired, _ := newAuth(t, "fastapi-users:auth", -time.Minute).IssueAccessToken(1)
	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		Audience:  jwt.ClaimStrings{"fastapi-users:auth"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other"))
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-number",
		Audience:  jwt.ClaimStrings{"fastapi-users:auth"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))

	cases := map[string]string{
		"empty":          "",
		"garbage":        "abc.def.ghi",
		"other_audience": otherAudience,
		"expired":        expired,
		"wrong_key":      wrongKey,
		"bad_subject":    badSubject,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := as.SetContextFromToken(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("want ErrInvalidToken got %v", err)
			}
		})
	}
}
