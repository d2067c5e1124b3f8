package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/companion-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, login string) *types.User {
	tb.Helper()
	u := &types.User{Login: login}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSubscribedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, login string) *types.User {
	tb.Helper()
	until := time.Now().Add(30 * 24 * time.Hour)
	u := &types.User{Login: login, SubscribedUntil: &until}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedMedia(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Media {
	tb.Helper()
	m := &types.Media{Name: name, URL: "https://cdn.test/" + name}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed media: %v", err)
	}
	return m
}

// SeedAvatar creates an avatar with photoCount canned message photos, one
// profile photo and the given farewell lines.
func SeedAvatar(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, photoCount int, farewells ...string) *types.Avatar {
	tb.Helper()
	a := &types.Avatar{
		Name:      name,
		Age:       24,
		Gender:    "female",
		Biography: "likes hiking",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed avatar: %v", err)
	}

	profile := SeedMedia(tb, ctx, tx, fmt.Sprintf("%s-profile.jpg", name))
	if err := tx.WithContext(ctx).Create(&types.AvatarPhoto{AvatarID: a.ID, MediaID: profile.ID}).Error; err != nil {
		tb.Fatalf("seed avatar photo: %v", err)
	}
	for i := 0; i < photoCount; i++ {
		m := SeedMedia(tb, ctx, tx, fmt.Sprintf("%s-%d.jpg", name, i))
		row := &types.AvatarMessagePhoto{AvatarID: a.ID, Position: i, MediaID: m.ID}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed message photo: %v", err)
		}
	}
	for _, text := range farewells {
		if err := tx.WithContext(ctx).Create(&types.AvatarFarewellMessage{AvatarID: a.ID, Text: text}).Error; err != nil {
			tb.Fatalf("seed farewell: %v", err)
		}
	}
	return a
}
