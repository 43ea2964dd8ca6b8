package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/api/middleware"
	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error)
	loginFn  func(ctx context.Context, email, password string) (*ports.OTPChallengeResult, error)
	verifyFn func(ctx context.Context, otp int, ref string) (*ports.VerificationResult, error)
	forgotFn func(ctx context.Context, email string) (*ports.MessageResult, error)
	resetFn  func(ctx context.Context, in ports.ResetPasswordInput) (*ports.MessageResult, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.OTPChallengeResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) VerifyOTP(ctx context.Context, otp int, ref string) (*ports.VerificationResult, error) {
	return s.verifyFn(ctx, otp, ref)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) (*ports.MessageResult, error) {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) (*ports.MessageResult, error) {
	return s.resetFn(ctx, in)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func assertHTTPError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Errorf("expected status %d, got %d", code, he.Code)
	}
	if msg != "" && he.Message != msg {
		t.Errorf("expected message %q, got %v", msg, he.Message)
	}
}

const validSignup = `{"name":"Ana","email":"ana@example.com","password":"Passw0rd!","role":"admin"}`

func TestAuthHandler_SignUp_Success(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(_ context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
			if in.Email != "ana@example.com" || in.Role != "admin" {
				t.Fatalf("unexpected input: %+v", in)
			}
			acc := &domain.Account{ID: "acc-1", Name: in.Name, Email: in.Email, Role: domain.RoleAdmin}
			return &ports.SignupResult{
				StatusCode: http.StatusOK,
				Message:    "User created successfully",
				Account:    acc,
				Credential: &domain.Credential{ID: "cred-1", OwnerID: "acc-1", Role: domain.RoleAdmin, PasswordHash: "secret-hash"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/auth/sign-up", validSignup)

	if err := h.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatal("password hash must never be serialised")
	}

	resp := decodeBody(t, rec)
	if resp["statusCode"] != float64(200) || resp["message"] != "User created successfully" {
		t.Errorf("unexpected envelope: %v", resp)
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", resp["data"])
	}
	account, _ := data["account"].(map[string]any)
	if account["id"] != "acc-1" {
		t.Errorf("unexpected account: %v", account)
	}
}

func TestAuthHandler_SignUp_CustomerDuplicateIs404(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(context.Context, ports.SignupInput) (*ports.SignupResult, error) {
			return &ports.SignupResult{StatusCode: http.StatusNotFound, Message: "User already exists"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/auth/sign-up", strings.Replace(validSignup, "admin", "customer", 1))

	if err := h.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decodeBody(t, rec)
	if _, ok := resp["data"]; ok {
		t.Error("duplicate response must not carry data")
	}
	if resp["statusCode"] != float64(404) {
		t.Errorf("statusCode must mirror HTTP status: %v", resp)
	}
}

func TestAuthHandler_SignUp_ValidationErrors(t *testing.T) {
	called := false
	stub := &stubAuthService{
		signupFn: func(context.Context, ports.SignupInput) (*ports.SignupResult, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	bodies := []string{
		`{"name":"Ana","email":"not-an-email","password":"Passw0rd!","role":"admin"}`,
		`{"name":"Ana","email":"ana@example.com","password":"short","role":"admin"}`,
		`{"name":"Ana","email":"ana@example.com","password":" Passw0rd!","role":"admin"}`,
		`{"name":"Ana","email":"ana@example.com","password":"Passw0rd!","role":"user"}`,
		`{"email":"ana@example.com","password":"Passw0rd!","role":"admin"}`,
		`{not json`,
	}
	for _, body := range bodies {
		c, _ := newTestContext(http.MethodPost, "/auth/sign-up", body)
		assertHTTPError(t, h.SignUp(c), http.StatusBadRequest, "")
	}
	if called {
		t.Error("service must not be called on invalid input")
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.OTPChallengeResult, error) {
			return &ports.OTPChallengeResult{OTP: 482913, OTPReference: "ref-1", ExpiresAt: time.Now()}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"Passw0rd!"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeBody(t, rec)
	if resp["otp"] != float64(482913) || resp["otpReference"] != "ref-1" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestAuthHandler_Login_OTPOmittedWhenMailed(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.OTPChallengeResult, error) {
			return &ports.OTPChallengeResult{OTPReference: "ref-1"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"Passw0rd!"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if _, ok := decodeBody(t, rec)["otp"]; ok {
		t.Error("otp must be omitted")
	}
}

func TestAuthHandler_Login_InvalidCredentialsPropagates(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.OTPChallengeResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"Passw0rd!"}`)

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_VerifyOTP_Success(t *testing.T) {
	stub := &stubAuthService{
		verifyFn: func(_ context.Context, otp int, ref string) (*ports.VerificationResult, error) {
			if otp != 482913 || ref != "ref-1" {
				t.Fatalf("unexpected args: %d %s", otp, ref)
			}
			return &ports.VerificationResult{
				AccessToken: "jwt",
				TokenType:   "Bearer",
				Account:     &domain.Account{ID: "acc-1"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/auth/verifyOtp", `{"otp":482913,"otpReference":"ref-1"}`)

	if err := h.VerifyOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decodeBody(t, rec)
	if resp["message"] != "Verification successful" {
		t.Errorf("unexpected message: %v", resp["message"])
	}
	result, ok := resp["result"].(map[string]any)
	if !ok || result["accessToken"] != "jwt" || result["tokenType"] != "Bearer" {
		t.Errorf("unexpected result: %v", resp["result"])
	}
}

func TestAuthHandler_VerifyOTP_NonNumericOTP(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/auth/verifyOtp", `{"otp":"abc","otpReference":"ref-1"}`)

	assertHTTPError(t, h.VerifyOTP(c), http.StatusBadRequest, msgOTPMustBeNumeric)
}

func TestAuthHandler_VerifyOTP_ClientErrorsPropagate(t *testing.T) {
	for _, want := range []error{domain.ErrMissingOTPInput, domain.ErrInvalidOTP} {
		stub := &stubAuthService{
			verifyFn: func(context.Context, int, string) (*ports.VerificationResult, error) { return nil, want },
		}
		h := NewAuthHandler(stub, zerolog.Nop())
		c, _ := newTestContext(http.MethodPost, "/auth/verifyOtp", `{"otp":1,"otpReference":"r"}`)

		if err := h.VerifyOTP(c); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_VerifyOTP_UnexpectedErrorIsGeneric500(t *testing.T) {
	stub := &stubAuthService{
		verifyFn: func(context.Context, int, string) (*ports.VerificationResult, error) {
			return nil, errors.New("redis: connection refused")
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/auth/verifyOtp", `{"otp":123456,"otpReference":"ref-1"}`)

	assertHTTPError(t, h.VerifyOTP(c), http.StatusInternalServerError, msgVerifyFailed)
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	stub := &stubAuthService{
		forgotFn: func(_ context.Context, email string) (*ports.MessageResult, error) {
			return &ports.MessageResult{StatusCode: http.StatusOK, Message: "If the account exists, a reset link has been sent"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/forgot-password", `{"email":"ana@example.com"}`)

	if err := h.ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword_AcceptsBothConfirmationNames(t *testing.T) {
	for _, body := range []string{
		`{"token":"tok","password":"NewPassw0rd","confirPassword":"NewPassw0rd"}`,
		`{"token":"tok","password":"NewPassw0rd","confirmPassword":"NewPassw0rd"}`,
	} {
		var got ports.ResetPasswordInput
		stub := &stubAuthService{
			resetFn: func(_ context.Context, in ports.ResetPasswordInput) (*ports.MessageResult, error) {
				got = in
				return &ports.MessageResult{StatusCode: http.StatusOK, Message: "Password reset successful"}, nil
			},
		}
		h := NewAuthHandler(stub, zerolog.Nop())
		c, rec := newTestContext(http.MethodPost, "/reset-password", body)

		if err := h.ResetPassword(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK || got.ConfirmPassword != "NewPassw0rd" || got.Token != "tok" {
			t.Errorf("body %s: unexpected input %+v", body, got)
		}
	}
}

func TestAuthHandler_ResetPassword_MissingConfirmation(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/reset-password", `{"token":"tok","password":"NewPassw0rd"}`)

	assertHTTPError(t, h.ResetPassword(c), http.StatusBadRequest, "")
}

func TestAuthHandler_WhoAmI(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, rec := newTestContext(http.MethodGet, "/auth/whoami", "")
	c.Set(middleware.ContextAccountID, "acc-1")
	c.Set(middleware.ContextEmail, "ana@example.com")
	c.Set(middleware.ContextRole, "customer")

	if err := h.WhoAmI(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	if data["id"] != "acc-1" || data["role"] != "customer" {
		t.Errorf("unexpected claims: %v", data)
	}

	c, _ = newTestContext(http.MethodGet, "/auth/whoami", "")
	assertHTTPError(t, h.WhoAmI(c), http.StatusUnauthorized, "")
}
