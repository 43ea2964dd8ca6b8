package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
)

const (
	MsgUserCreated       = "User created successfully"
	MsgUserExists        = "User already exists"
	MsgResetRequested    = "If the account exists, a reset link has been sent"
	MsgPasswordReset     = "Password reset successful"
	defaultTokenTTL      = 24 * time.Hour
	defaultOTPTTL        = 5 * time.Minute
	defaultResetTTL      = 30 * time.Minute
	defaultMaxOTPAttempt = 5
)

// AuthStores groups the persistence collaborators of AuthService.
type AuthStores struct {
	Accounts    ports.AccountRepository
	Credentials ports.CredentialRepository
	OTPs        ports.OTPStore
	ResetTokens ports.ResetTokenStore
}

// AuthOptions tunes AuthService. Zero values fall back to defaults.
type AuthOptions struct {
	JWTSecret      string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	ResetTTL       time.Duration
	MaxOTPAttempts int
	// ExposeOTP returns the OTP in the login response instead of mailing it.
	ExposeOTP bool
	HashCost  int
	// ResetURL is the front-end page the reset token is appended to.
	ResetURL string
}

// AuthService implements signup, OTP login and password reset.
type AuthService struct {
	stores   AuthStores
	notifier ports.Notifier
	limiter  ports.RateLimiter
	opts     AuthOptions
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(stores AuthStores, notifier ports.Notifier, limiter ports.RateLimiter, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = defaultOTPTTL
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = defaultResetTTL
	}
	if opts.MaxOTPAttempts <= 0 {
		opts.MaxOTPAttempts = defaultMaxOTPAttempt
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &AuthService{
		stores:   stores,
		notifier: notifier,
		limiter:  limiter,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates an account and its credential. An email already used by a
// live account of either role produces an "already exists" result.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	order, err := signupLookupOrder(role)
	if err != nil {
		return nil, err
	}
	for _, r := range order {
		_, err := s.stores.Accounts.FindActiveByEmail(ctx, r, in.Email)
		if err == nil {
			s.log.Info().Str("email", in.Email).Str("role", role.String()).Str("found_in", r.String()).Msg("signup rejected, email in use")
			return duplicateSignup(role)
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("signup: lookup %s: %w", r, err)
		}
	}

	now := s.now()
	account, cred, err := s.stores.Accounts.CreateWithCredential(ctx, &domain.Account{
		Name:      in.Name,
		Email:     in.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			s.log.Warn().Str("email", in.Email).Msg("signup lost race on email claim")
			return duplicateSignup(role)
		}
		return nil, fmt.Errorf("signup: create account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Str("role", role.String()).Msg("account created")
	return &ports.SignupResult{
		StatusCode: http.StatusOK,
		Message:    MsgUserCreated,
		Account:    account,
		Credential: cred,
	}, nil
}

// signupLookupOrder returns the stores checked for an existing email. The
// other role's store is always checked first.
func signupLookupOrder(role domain.Role) ([]domain.Role, error) {
	switch role {
	case domain.RoleAdmin:
		return []domain.Role{domain.RoleCustomer, domain.RoleAdmin}, nil
	case domain.RoleCustomer:
		return []domain.Role{domain.RoleAdmin, domain.RoleCustomer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
}

// duplicateSignup keeps the historical status codes clients rely on: 200 for
// admin signups, 404 for customer signups.
func duplicateSignup(role domain.Role) (*ports.SignupResult, error) {
	switch role {
	case domain.RoleAdmin:
		return &ports.SignupResult{StatusCode: http.StatusOK, Message: MsgUserExists}, nil
	case domain.RoleCustomer:
		return &ports.SignupResult{StatusCode: http.StatusNotFound, Message: MsgUserExists}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
}

// Login checks the password and opens an OTP challenge.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.OTPChallengeResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, "login:"+strings.ToLower(email)) {
		return nil, domain.ErrRateLimited
	}

	account, err := s.findAccount(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	cred, err := s.stores.Credentials.FindByOwner(ctx, account.Role, account.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialMissing) {
			s.log.Error().Str("account_id", account.ID).Msg("account has no credential")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: load credential: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("login: generate otp: %w", err)
	}
	codeHash, err := hashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("login: hash otp: %w", err)
	}

	challenge := &domain.OTPChallenge{
		Reference: uuid.NewString(),
		CodeHash:  codeHash,
		AccountID: account.ID,
		Role:      account.Role,
		Email:     account.Email,
		ExpiresAt: s.now().Add(s.opts.OTPTTL),
	}
	if err := s.stores.OTPs.Save(ctx, challenge, s.opts.OTPTTL); err != nil {
		return nil, fmt.Errorf("login: save challenge: %w", err)
	}

	result := &ports.OTPChallengeResult{
		OTPReference: challenge.Reference,
		ExpiresAt:    challenge.ExpiresAt,
	}
	if s.opts.ExposeOTP {
		result.OTP = code
	} else if err := s.notify(ctx, otpNotification(account.Email, code, challenge.ExpiresAt)); err != nil {
		if _, cerr := s.stores.OTPs.Consume(ctx, challenge.Reference); cerr != nil {
			s.log.Warn().Err(cerr).Str("otp_reference", challenge.Reference).Msg("failed to drop undelivered otp challenge")
		}
		return nil, fmt.Errorf("login: deliver otp: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Str("otp_reference", challenge.Reference).Msg("otp challenge issued")
	return result, nil
}

// VerifyOTP completes a login. A challenge can succeed at most once.
func (s *AuthService) VerifyOTP(ctx context.Context, otp int, reference string) (*ports.VerificationResult, error) {
	if otp == 0 || reference == "" {
		return nil, domain.ErrMissingOTPInput
	}

	challenge, err := s.stores.OTPs.Get(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify otp: load challenge: %w", err)
	}
	if challenge.Expired(s.now()) {
		_, _ = s.stores.OTPs.Consume(ctx, reference)
		return nil, domain.ErrInvalidOTP
	}

	if !checkOTP(otp, challenge.CodeHash) {
		attempts, err := s.stores.OTPs.RecordFailedAttempt(ctx, reference)
		if err != nil {
			s.log.Warn().Err(err).Str("otp_reference", reference).Msg("failed to record otp attempt")
		}
		if attempts >= s.opts.MaxOTPAttempts {
			_, _ = s.stores.OTPs.Consume(ctx, reference)
			s.log.Warn().Str("otp_reference", reference).Int("attempts", attempts).Msg("otp challenge locked")
		}
		return nil, domain.ErrInvalidOTP
	}

	consumed, err := s.stores.OTPs.Consume(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify otp: consume challenge: %w", err)
	}
	if !consumed {
		return nil, domain.ErrInvalidOTP
	}

	account, err := s.stores.Accounts.FindByID(ctx, challenge.Role, challenge.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify otp: load account: %w", err)
	}
	if account.IsDeleted {
		s.log.Warn().Str("account_id", account.ID).Msg("otp verified for deleted account")
		return nil, domain.ErrInvalidOTP
	}

	token, expiresAt, err := s.issueToken(account)
	if err != nil {
		return nil, fmt.Errorf("verify otp: issue token: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("otp verified")
	return &ports.VerificationResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Account:     account,
	}, nil
}

// ForgotPassword issues a reset token and mails it. The answer is the same
// whether or not the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ports.MessageResult, error) {
	done := &ports.MessageResult{StatusCode: http.StatusOK, Message: MsgResetRequested}

	if s.limiter != nil && !s.limiter.Allow(ctx, "forgot:"+strings.ToLower(email)) {
		return nil, domain.ErrRateLimited
	}

	account, err := s.findAccount(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Info().Str("email", email).Msg("password reset requested for unknown email")
			return done, nil
		}
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	raw, err := generateResetToken()
	if err != nil {
		return nil, fmt.Errorf("forgot password: generate token: %w", err)
	}
	expiresAt := s.now().Add(s.opts.ResetTTL)
	tokenHash := hashResetToken(raw)
	if err := s.stores.ResetTokens.Save(ctx, &domain.ResetToken{
		TokenHash: tokenHash,
		AccountID: account.ID,
		Role:      account.Role,
		ExpiresAt: expiresAt,
	}, s.opts.ResetTTL); err != nil {
		return nil, fmt.Errorf("forgot password: save token: %w", err)
	}

	if err := s.notify(ctx, resetNotification(account.Email, s.opts.ResetURL, raw, expiresAt)); err != nil {
		// The answer must not differ from the unknown-email case.
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("reset link not delivered")
		if _, cerr := s.stores.ResetTokens.Consume(ctx, tokenHash); cerr != nil && !errors.Is(cerr, domain.ErrInvalidResetToken) {
			s.log.Warn().Err(cerr).Str("account_id", account.ID).Msg("failed to drop undelivered reset token")
		}
		return done, nil
	}

	s.log.Info().Str("account_id", account.ID).Msg("password reset token issued")
	return done, nil
}

// ResetPassword swaps the credential hash using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) (*ports.MessageResult, error) {
	if in.Password != in.ConfirmPassword {
		return nil, domain.ErrPasswordMismatch
	}

	token, err := s.stores.ResetTokens.Consume(ctx, hashResetToken(in.Token))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			return nil, err
		}
		return nil, fmt.Errorf("reset password: consume token: %w", err)
	}
	if !token.ExpiresAt.IsZero() && s.now().After(token.ExpiresAt) {
		return nil, domain.ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("reset password: hash password: %w", err)
	}
	if err := s.stores.Credentials.UpdatePasswordHash(ctx, token.Role, token.AccountID, string(hash)); err != nil {
		return nil, fmt.Errorf("reset password: update credential: %w", err)
	}

	s.log.Info().Str("account_id", token.AccountID).Msg("password reset")
	return &ports.MessageResult{StatusCode: http.StatusOK, Message: MsgPasswordReset}, nil
}

// findAccount resolves an email across role stores in domain.Roles order.
func (s *AuthService) findAccount(ctx context.Context, email string) (*domain.Account, error) {
	for _, role := range domain.Roles {
		account, err := s.stores.Accounts.FindActiveByEmail(ctx, role, email)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("lookup %s: %w", role, err)
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *AuthService) notify(ctx context.Context, n domain.Notification) error {
	if s.notifier == nil {
		return errors.New("notifier not configured")
	}
	return s.notifier.Notify(ctx, n)
}

func (s *AuthService) issueToken(account *domain.Account) (string, time.Time, error) {
	expiresAt := s.now().Add(s.opts.TokenTTL)
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"role":  account.Role.String(),
		"exp":   expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
