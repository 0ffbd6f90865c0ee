package otp

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// Mailer delivers one-time codes to users.
type Mailer interface {
	SendResetPassword(ctx context.Context, to, code string) error
	SendVerification(ctx context.Context, to, code string) error
}

// Config tunes code generation.
type Config struct {
	Length int
	Expiry time.Duration
}

// Service owns the lifecycle of one-time codes: issue with delivery,
// validate, consume, and cleanup.
type Service struct {
	repo   Repository
	mailer Mailer
	length int
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, mailer Mailer, cfg Config, logger *slog.Logger) *Service {
	length := cfg.Length
	if length <= 0 {
		length = 6
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 5 * time.Minute
	}
	return &Service{repo: repo, mailer: mailer, length: length, expiry: expiry, logger: logger, now: time.Now}
}

// IssueReset creates and emails a password reset code, invalidating any
// outstanding reset codes for the same address first.
func (s *Service) IssueReset(ctx context.Context, email string, userID int64) error {
	return s.issue(ctx, email, &userID, TypeResetPassword)
}

// IssueVerification creates and emails an account verification code.
func (s *Service) IssueVerification(ctx context.Context, email string, userID int64) error {
	return s.issue(ctx, email, &userID, TypeRegister)
}

func (s *Service) issue(ctx context.Context, email string, userID *int64, otpType Type) error {
	if err := s.repo.InvalidatePrevious(ctx, email, otpType); err != nil {
		return err
	}
	code, err := GenerateCode(s.length)
	if err != nil {
		return err
	}
	record := OTP{
		UserID:    userID,
		Email:     email,
		Code:      code,
		Type:      otpType,
		ExpiresAt: s.now().Add(s.expiry),
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		return err
	}
	switch otpType {
	case TypeResetPassword:
		err = s.mailer.SendResetPassword(ctx, email, code)
	default:
		err = s.mailer.SendVerification(ctx, email, code)
	}
	if err != nil && s.logger != nil {
		s.logger.Error("send otp email", slog.String("type", string(otpType)), slog.Any("error", err))
	}
	return err
}

// ValidateReset checks a password reset code without consuming it.
func (s *Service) ValidateReset(ctx context.Context, code string) error {
	_, err := s.active(ctx, code, TypeResetPassword)
	return err
}

// ConsumeReset validates a reset code, marks it used, and returns the
// address it was issued for.
func (s *Service) ConsumeReset(ctx context.Context, code string) (string, error) {
	return s.consume(ctx, code, TypeResetPassword)
}

// ConsumeVerification redeems an account verification code.
func (s *Service) ConsumeVerification(ctx context.Context, code string) (string, error) {
	return s.consume(ctx, code, TypeRegister)
}

// active resolves a live code. A code only redeems the flow it was
// issued for; a verification code presented to the reset flow is
// invalid, not a match.
func (s *Service) active(ctx context.Context, code string, otpType Type) (OTP, error) {
	record, err := s.repo.GetActiveByCode(ctx, code)
	if err != nil {
		return OTP{}, err
	}
	if record.Type != otpType || s.now().After(record.ExpiresAt) {
		return OTP{}, shared.ErrOTPInvalid
	}
	return record, nil
}

func (s *Service) consume(ctx context.Context, code string, otpType Type) (string, error) {
	record, err := s.active(ctx, code, otpType)
	if err != nil {
		return "", err
	}
	if err := s.repo.MarkUsed(ctx, record.ID); err != nil {
		return "", err
	}
	return record.Email, nil
}

// CleanupExpired drops codes past their expiry.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
