package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/flaelle/flaelle/internal/platform/validation"
	"github.com/flaelle/flaelle/internal/shared"
)

var validate = validation.New()

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps authentication business rules.
type Service struct {
	account Account
	audit   AuditPort
	logger  *slog.Logger
}

// NewService constructs a new Service. The account hash must be a bcrypt hash.
func NewService(account Account, audit AuditPort, logger *slog.Logger) (*Service, error) {
	if strings.TrimSpace(account.Username) == "" {
		return nil, errors.New("auth: admin username required")
	}
	if _, err := bcrypt.Cost([]byte(account.PasswordHash)); err != nil {
		return nil, errors.New("auth: admin password hash is not a bcrypt hash")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{account: account, audit: audit, logger: logger}, nil
}

// Authenticate validates credentials and returns the user name.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	if err := validate.Struct(creds); err != nil {
		return "", err
	}
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(s.account.Username)) == 1
	// Compare the hash even when the user name differs.
	passErr := bcrypt.CompareHashAndPassword([]byte(s.account.PasswordHash), []byte(creds.Password))
	if !userOK || passErr != nil {
		s.logger.Info("login rejected", slog.String("username", creds.Username))
		return "", shared.ErrInvalidCredentials
	}
	s.record(ctx, creds.Username, "auth:login")
	return s.account.Username, nil
}

// Logout records the end of a session.
func (s *Service) Logout(ctx context.Context, user string) {
	if user != "" {
		s.record(ctx, user, "auth:logout")
	}
}

// HashPassword returns the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) record(ctx context.Context, user, action string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{Actor: user, Action: action, Entity: "session", EntityID: user})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
