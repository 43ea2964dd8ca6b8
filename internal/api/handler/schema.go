package handler

import (
	"time"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// envelope is the response body shared by every endpoint: {statusCode, message, data?}.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// errorResponse documents the error envelope rendered by the central error handler.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// --- Auth ---

type signupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email,min=5,max=254"`
	Password string `json:"password" validate:"required,min=8,trimmed"`
	Role     string `json:"role"     validate:"required,oneof=admin customer"`
}

type signupData struct {
	Account    *domain.Account    `json:"account"`
	Credential *domain.Credential `json:"credential"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email,min=5,max=254,trimmed"`
	Password string `json:"password" validate:"required,min=8,trimmed"`
}

type loginResponse struct {
	OTP          int    `json:"otp,omitempty"`
	OTPReference string `json:"otpReference"`
}

// verifyOTPRequest carries no validate tags; missing fields are reported by
// the service with its own message.
type verifyOTPRequest struct {
	OTP          int    `json:"otp"`
	OTPReference string `json:"otpReference"`
}

type verificationResult struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	Account     *domain.Account `json:"account"`
}

type verifyOTPResponse struct {
	StatusCode int                `json:"statusCode"`
	Message    string             `json:"message"`
	Result     verificationResult `json:"result"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,min=5,max=254"`
}

// resetPasswordRequest accepts the confirmation under both its historical
// name (confirPassword) and the corrected one.
type resetPasswordRequest struct {
	Token           string `json:"token"           validate:"required"`
	Password        string `json:"password"        validate:"required,min=8,trimmed"`
	ConfirPassword  string `json:"confirPassword"  validate:"required_without=ConfirmPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r resetPasswordRequest) confirmation() string {
	if r.ConfirPassword != "" {
		return r.ConfirPassword
	}
	return r.ConfirmPassword
}

type whoAmIResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// --- Products ---

type createProductRequest struct {
	CategoryID  string `json:"categoryId"  validate:"required"`
	Name        string `json:"name"        validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type updateProductRequest struct {
	CategoryID  *string `json:"categoryId"  validate:"omitempty,min=1"`
	Name        *string `json:"name"        validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func (r updateProductRequest) patch() domain.ProductPatch {
	return domain.ProductPatch{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
	}
}

type createCategoryRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}
