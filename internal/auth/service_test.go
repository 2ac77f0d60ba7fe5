package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{
		Secret:            "secret",
		Issuer:            "marketplace",
		ExpirationMinutes: 30,
	}
	testPassword = config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
)

func TestServiceLoginMintsRoleToken(t *testing.T) {
	user := newTestUser(t, "owner@example.com", "s3cretpass", enums.UserRoleBusiness)
	repo := &stubUserRepo{user: user}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, PasswordConfig: testPassword})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Owner@Example.com ", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleBusiness {
		t.Fatalf("expected business role claim, got %s", claims.Role)
	}
	if claims.UserID != user.ID {
		t.Fatalf("unexpected user id claim %s", claims.UserID)
	}
	if resp.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry to be set")
	}
	if repo.lastLogin.IsZero() {
		t.Fatalf("expected last login to be recorded")
	}
	if repo.rehashed != "" {
		t.Fatalf("hash with current params should not be rewritten")
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	user := newTestUser(t, "c@example.com", "s3cretpass", enums.UserRoleCustomer)
	svc, err := NewService(ServiceParams{UserRepo: &stubUserRepo{user: user}, JWTConfig: testJWT, PasswordConfig: testPassword})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrongpass1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	svc, err := NewService(ServiceParams{UserRepo: &stubUserRepo{}, JWTConfig: testJWT, PasswordConfig: testPassword})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginRehashesWeakHash(t *testing.T) {
	weak := config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	hash, err := security.HashPassword("s3cretpass", weak)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{ID: uuid.New(), Email: "c@example.com", PasswordHash: hash, Role: enums.UserRoleCustomer}
	repo := &stubUserRepo{user: user}
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, PasswordConfig: testPassword})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "s3cretpass"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.rehashed == "" || repo.rehashed == hash {
		t.Fatalf("expected password to be rehashed")
	}
	if security.NeedsRehash(repo.rehashed, testPassword) {
		t.Fatalf("rehashed value should satisfy current params")
	}
}

func newTestUser(t *testing.T, email, password string, role enums.UserRole) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Test",
		Role:         role,
	}
}

type stubUserRepo struct {
	user      *models.User
	lastLogin time.Time
	rehashed  string
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.user
	return &copied, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if s.user == nil || s.user.ID != id {
		return errors.New("unknown user")
	}
	s.lastLogin = at
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(_ context.Context, _ uuid.UUID, hash string) error {
	s.rehashed = hash
	return nil
}
