package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 120}
}

func TestServiceLoginMintsTokenAndAudits(t *testing.T) {
	password := "ana-secret-1"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: mustHashPassword(t, password),
		IsAdmin:      true,
		IsActive:     true,
	}
	cfg := testJWTConfig()
	svc, repo, sessions := buildTestService(t, user, cfg)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ANA@example.com", Password: password}, LoginMeta{IP: "10.0.0.1", UserAgent: "curl"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.Token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email() != user.Email || claims.Name != "Ana" || !claims.IsAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.ExpiresIn != int64((2 * time.Hour).Seconds()) {
		t.Fatalf("expected 2h expiry, got %d", resp.ExpiresIn)
	}
	if sessions.registered[claims.ID] != user.ID {
		t.Fatalf("expected session registered for jti %s", claims.ID)
	}
	if len(repo.audits) != 1 || repo.audits[0].UserID != user.ID || *repo.audits[0].IP != "10.0.0.1" {
		t.Fatalf("expected one login audit, got %+v", repo.audits)
	}
	if repo.lastLogin.IsZero() {
		t.Fatal("expected last login to be updated")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		IsActive:     true,
	}
	svc, repo, _ := buildTestService(t, user, testJWTConfig())

	cases := []LoginRequest{
		{Email: "ana@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "right-password"},
		{Email: " ", Password: "right-password"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req, LoginMeta{})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
	if len(repo.audits) != 0 {
		t.Fatalf("failed logins must not be audited")
	}

	user.IsActive = false
	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "right-password"}, LoginMeta{})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("inactive user should be unauthorized, got %v", err)
	}
}

func TestServiceRetrieveAndLogout(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", IsActive: true}
	svc, _, sessions := buildTestService(t, user, testJWTConfig())

	dto, err := svc.Retrieve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if dto.Roles[0] != "User" {
		t.Fatalf("expected User role, got %v", dto.Roles)
	}

	if _, err := svc.Retrieve(context.Background(), uuid.New()); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	sessions.registered["jti-1"] = user.ID
	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.registered["jti-1"]; ok {
		t.Fatal("expected session revoked")
	}
}

func buildTestService(t *testing.T, user *models.User, jwtCfg config.JWTConfig) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()
	repo := &stubUserRepo{user: user}
	sessions := &stubSessionManager{registered: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: jwtCfg})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user      *models.User
	audits    []models.LoginAudit
	lastLogin time.Time
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user == nil || s.user.ID != id {
		return errors.New("unknown user")
	}
	s.lastLogin = at
	return nil
}

func (s *stubUserRepo) InsertLoginAudit(ctx context.Context, audit *models.LoginAudit) error {
	s.audits = append(s.audits, *audit)
	return nil
}

type stubSessionManager struct {
	registered map[string]uuid.UUID
}

func (s *stubSessionManager) Register(ctx context.Context, accessID string, userID uuid.UUID) error {
	s.registered[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.registered, accessID)
	return nil
}
