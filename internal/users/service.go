package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gatehouse-id/gatehouse/internal/auth"
	"github.com/gatehouse-id/gatehouse/internal/rbac"
	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, params CreateParams) (User, error)
	List(ctx context.Context, skip, limit int) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	Update(ctx context.Context, id int64, params UpdateParams) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// RoleDirectory resolves role names for registration and admin create.
type RoleDirectory interface {
	GetRoleByName(ctx context.Context, name string) (rbac.Role, error)
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
}

// VerificationStarter begins email confirmation for new accounts.
type VerificationStarter interface {
	IssueVerification(ctx context.Context, email string, userID int64) error
}

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = "User"

// Service handles user business logic.
type Service struct {
	repo         RepositoryPort
	roles        RoleDirectory
	verifier     VerificationStarter
	emailDomains []string
	logger       *slog.Logger
}

// NewService builds a Service instance. emailDomains restricts
// self-registration; empty allows any domain.
func NewService(repo RepositoryPort, roles RoleDirectory, verifier VerificationStarter, emailDomains []string, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, verifier: verifier, emailDomains: emailDomains, logger: logger}
}

// Register creates a self-service account with the default role and
// starts email verification. A delivery failure does not fail the
// registration; the account can request a fresh code later.
func (s *Service) Register(ctx context.Context, firstName, lastName, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.domainAllowed(email) {
		return User{}, shared.ErrEmailDomainNotAllowed
	}
	role, err := s.roles.GetRoleByName(ctx, DefaultRole)
	if err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, CreateParams{
		RoleID:       role.ID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return User{}, err
	}
	if s.verifier != nil {
		if err := s.verifier.IssueVerification(ctx, user.Email, user.ID); err != nil && s.logger != nil {
			s.logger.Error("issue verification otp", slog.String("email", user.Email), slog.Any("error", err))
		}
	}
	return user, nil
}

// Create provisions an account with an explicit role (admin operation).
// The role must exist; a principal never references a missing role.
func (s *Service) Create(ctx context.Context, roleID int64, firstName, lastName, email, password string) (User, error) {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, CreateParams{
		RoleID:       roleID,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		IsVerified:   true,
	})
}

// List returns accounts with offset pagination.
func (s *Service) List(ctx context.Context, skip, limit int) ([]User, error) {
	return s.repo.List(ctx, skip, limit)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail fetches one account by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Update applies profile changes.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (User, error) {
	return s.repo.Update(ctx, id, params)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	hash, err := s.repo.GetPasswordHash(ctx, id)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(hash, current) {
		return shared.ErrInvalidCredentials
	}
	newHash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, newHash)
}

// Deactivate marks the account inactive without removing it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) domainAllowed(email string) bool {
	if len(s.emailDomains) == 0 {
		return true
	}
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return false
	}
	for _, allowed := range s.emailDomains {
		if domain == allowed {
			return true
		}
	}
	return false
}
