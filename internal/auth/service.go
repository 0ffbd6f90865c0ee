package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// OTPIssuer is the one-time-code collaborator for password resets and
// account verification.
type OTPIssuer interface {
	IssueReset(ctx context.Context, email string, userID int64) error
	IssueVerification(ctx context.Context, email string, userID int64) error
	ValidateReset(ctx context.Context, code string) error
	ConsumeReset(ctx context.Context, code string) (email string, err error)
	ConsumeVerification(ctx context.Context, code string) (email string, err error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
	otp    OTPIssuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, otp OTPIssuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, otp: otp, logger: logger, now: time.Now}
}

// Authenticate validates email/password credentials. Every failure
// mode collapses into ErrInvalidCredentials so responses do not reveal
// whether the account exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}
	if err := s.repo.TouchLastActive(ctx, user.ID, s.now()); err != nil && s.logger != nil {
		s.logger.Warn("touch last active", slog.Any("error", err))
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(user.ID, 0)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout revokes the presented token and records activity.
func (s *Service) Logout(ctx context.Context, userID int64, rawToken string) error {
	if err := s.repo.TouchLastActive(ctx, userID, s.now()); err != nil && s.logger != nil {
		s.logger.Warn("touch last active", slog.Any("error", err))
	}
	return s.tokens.Revoke(ctx, rawToken)
}

// VerifyToken resolves a bearer token to its active principal.
func (s *Service) VerifyToken(ctx context.Context, raw string) (*User, error) {
	principalID, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, principalID)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// ForgotPassword issues a reset code for the account. Unknown emails
// report success so callers cannot learn which accounts exist.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.otp.IssueReset(ctx, email, user.ID)
}

// ValidateResetCode checks a reset code without consuming it.
func (s *Service) ValidateResetCode(ctx context.Context, code string) error {
	return s.otp.ValidateReset(ctx, code)
}

// ResetPassword consumes a reset code and stores a fresh hash.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	email, err := s.otp.ConsumeReset(ctx, code)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, user.ID, hash)
}

// RequestVerification issues an account verification code. Unknown and
// already-verified addresses report success so callers cannot learn
// account state.
func (s *Service) RequestVerification(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.otp.IssueVerification(ctx, email, user.ID)
}

// VerifyAccount consumes a verification code and marks the account's
// email as confirmed.
func (s *Service) VerifyAccount(ctx context.Context, code string) error {
	email, err := s.otp.ConsumeVerification(ctx, code)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.repo.MarkVerified(ctx, user.ID)
}
