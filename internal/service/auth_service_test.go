package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
	}
	return NewAuthService(cfg, repository.NewAdminRepository(db)), db
}

func seedAdmin(t *testing.T, db *gorm.DB, username, password string) *models.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	admin := &models.Admin{Username: username, PasswordHash: string(hash)}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	return admin
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	seedAdmin(t, db, "boss", "s3cret-pass")

	admin, token, expiresAt, err := svc.Login("boss", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if admin.LastLoginAt == nil {
		t.Fatalf("last login must be stamped")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("token must expire in the future")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT error: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "boss" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	seedAdmin(t, db, "boss", "s3cret-pass")

	if _, _, _, err := svc.Login("boss", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestParseJWTRejectsTampering(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	admin := seedAdmin(t, db, "boss", "s3cret-pass")

	token, _, err := svc.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("GenerateJWT error: %v", err)
	}
	if _, err := svc.ParseJWT(token + "x"); err == nil {
		t.Fatalf("tampered token must be rejected")
	}

	other := NewAuthService(&config.Config{
		JWT: config.JWTConfig{SecretKey: "different", ExpireHours: 1},
	}, repository.NewAdminRepository(db))
	if _, err := other.ParseJWT(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}
