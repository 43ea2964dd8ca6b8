package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/api/metrics"
	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
)

const (
	msgVerified         = "Verification successful"
	msgVerifyFailed     = "Error during OTP verification."
	msgInvalidPayload   = "invalid payload"
	msgOTPMustBeNumeric = "Invalid input. OTP must be a number."
)

type AuthHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// SignUp creates an admin or customer account.
//
// @Summary      Sign up
// @Description  An email already used by a live account answers "User already exists" with status 200 for admin sign-ups and 404 for customer sign-ups.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      200   {object}  envelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  envelope
// @Failure      500   {object}  errorResponse
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("signup", metrics.OutcomeRejected).Inc()
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("signup", outcomeOf(err)).Inc()
		return err
	}

	body := envelope{StatusCode: res.StatusCode, Message: res.Message}
	if res.Account != nil {
		body.Data = signupData{Account: res.Account, Credential: res.Credential}
		metrics.SignupsTotal.WithLabelValues(res.Account.Role.String()).Inc()
	}
	metrics.AuthOperationsTotal.WithLabelValues("signup", metrics.Outcome(res.StatusCode)).Inc()
	return c.JSON(res.StatusCode, body)
}

// Login checks the password and opens an OTP challenge.
//
// @Summary      Login
// @Description  The otp field is omitted when codes are delivered by email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("login", metrics.OutcomeRejected).Inc()
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("login", outcomeOf(err)).Inc()
		return err
	}

	metrics.AuthOperationsTotal.WithLabelValues("login", metrics.OutcomeSuccess).Inc()
	return c.JSON(http.StatusOK, loginResponse{OTP: res.OTP, OTPReference: res.OTPReference})
}

// VerifyOTP exchanges an OTP for an access token.
//
// @Summary      Verify OTP
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyOTPRequest  true  "OTP and its reference"
// @Success      200   {object}  verifyOTPResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/verifyOtp [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("verify_otp", metrics.OutcomeRejected).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, msgOTPMustBeNumeric).SetInternal(err)
	}

	res, err := h.authService.VerifyOTP(c.Request().Context(), req.OTP, req.OTPReference)
	if err != nil {
		outcome := outcomeOf(err)
		metrics.AuthOperationsTotal.WithLabelValues("verify_otp", outcome).Inc()
		if outcome == metrics.OutcomeRejected {
			return err
		}
		h.log.Error().Err(err).Str("otp_reference", req.OTPReference).Msg("otp verification failed")
		return echo.NewHTTPError(http.StatusInternalServerError, msgVerifyFailed)
	}

	metrics.AuthOperationsTotal.WithLabelValues("verify_otp", metrics.OutcomeSuccess).Inc()
	return c.JSON(http.StatusOK, verifyOTPResponse{
		StatusCode: http.StatusOK,
		Message:    msgVerified,
		Result: verificationResult{
			AccessToken: res.AccessToken,
			TokenType:   res.TokenType,
			ExpiresAt:   res.ExpiresAt,
			Account:     res.Account,
		},
	})
}

// ForgotPassword mails a reset link if the email is registered.
//
// @Summary      Forgot password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  envelope
// @Failure      400   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("forgot_password", metrics.OutcomeRejected).Inc()
		return err
	}

	res, err := h.authService.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("forgot_password", outcomeOf(err)).Inc()
		return err
	}

	metrics.AuthOperationsTotal.WithLabelValues("forgot_password", metrics.OutcomeSuccess).Inc()
	return c.JSON(res.StatusCode, envelope{StatusCode: res.StatusCode, Message: res.Message})
}

// ResetPassword sets a new password using a reset token.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  envelope
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("reset_password", metrics.OutcomeRejected).Inc()
		return err
	}

	res, err := h.authService.ResetPassword(c.Request().Context(), ports.ResetPasswordInput{
		Token:           req.Token,
		Password:        req.Password,
		ConfirmPassword: req.confirmation(),
	})
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("reset_password", outcomeOf(err)).Inc()
		return err
	}

	metrics.AuthOperationsTotal.WithLabelValues("reset_password", metrics.OutcomeSuccess).Inc()
	return c.JSON(res.StatusCode, envelope{StatusCode: res.StatusCode, Message: res.Message})
}

// WhoAmI returns the identity carried by the access token.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope{data=whoAmIResponse}
// @Failure      401  {object}  errorResponse
// @Router       /auth/whoami [get]
func (h *AuthHandler) WhoAmI(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, Message: msgSuccess, Data: claims})
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidPayload).SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// outcomeOf classifies a service error for the operation counters.
func outcomeOf(err error) string {
	for _, class := range []error{
		domain.ErrValidation,
		domain.ErrConflict,
		domain.ErrNotFound,
		domain.ErrAuthentication,
		domain.ErrRateLimited,
	} {
		if errors.Is(err, class) {
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeError
}
