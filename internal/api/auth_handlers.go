package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	limited := huma.Middlewares{s.rateLimited}

	huma.Register(s.api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Sign up",
		Description:   "Creates a local account, emails a verification link and returns an access token",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleSignup)

	huma.Register(s.api, huma.Operation{
		OperationID: "signin",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates a local account with email and password",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleSignin)

	huma.Register(s.api, huma.Operation{
		OperationID: "googleSignin",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/google",
		Summary:     "Sign in with Google",
		Description: "Verifies a Google ID token, linking or creating the account",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleGoogle)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyEmail",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/verify-email/{token}",
		Summary:     "Verify email",
		Description: "Consumes an email verification token",
		Tags:        []string{"Authentication"},
	}, s.handleVerifyEmail)

	huma.Register(s.api, huma.Operation{
		OperationID: "resendVerification",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/resend-verification",
		Summary:     "Resend verification",
		Description: "Emails a fresh verification link to the signed-in user",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: limited,
	}, s.handleResendVerification)

	huma.Register(s.api, huma.Operation{
		OperationID: "forgotPassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/forgot-password",
		Summary:     "Forgot password",
		Description: "Emails a password reset link. Always succeeds so addresses cannot be probed.",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleForgotPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/reset-password/{token}",
		Summary:     "Reset password",
		Description: "Sets a new password with a reset token",
		Tags:        []string{"Authentication"},
		Middlewares: limited,
	}, s.handleResetPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeOnboarding",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/complete-onboarding",
		Summary:     "Complete onboarding",
		Description: "Stores the first-run questionnaire answers",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCompleteOnboarding)

	huma.Register(s.api, huma.Operation{
		OperationID: "skipOnboarding",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/skip-onboarding",
		Summary:     "Skip onboarding",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSkipOnboarding)

	huma.Register(s.api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the signed-in user with list counts",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/change-password",
		Summary:     "Change password",
		Description: "Replaces the password; local accounts must confirm the current one",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: limited,
	}, s.handleChangePassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Acknowledges a logout. Tokens are stateless; clients discard them.",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)
}

// === DTOs ===

// SignupInput wraps the signup request for Huma.
type SignupInput struct {
	Body service.SignupRequest
}

// SigninInput wraps the signin request for Huma.
type SigninInput struct {
	Body service.SigninRequest
}

// GoogleInput wraps the Google sign-in request for Huma.
type GoogleInput struct {
	Body service.GoogleRequest
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body *service.AuthResponse
}

// TokenInput carries a one-time token in the path.
type TokenInput struct {
	Token string `path:"token" maxLength:"128" doc:"One-time token from the emailed link"`
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" maxLength:"254" doc:"Account email"`
}

// ForgotPasswordInput wraps the forgot-password request for Huma.
type ForgotPasswordInput struct {
	Body ForgotPasswordRequest
}

// ResetPasswordInput wraps the reset-password request for Huma.
type ResetPasswordInput struct {
	Token string `path:"token" maxLength:"128" doc:"Reset token from the emailed link"`
	Body  service.ResetPasswordRequest
}

// OnboardingInput wraps the onboarding answers for Huma.
type OnboardingInput struct {
	Body service.OnboardingRequest
}

// MeOutput wraps the current user for Huma.
type MeOutput struct {
	Body *service.MeResponse
}

// ChangePasswordInput wraps the change-password request for Huma.
type ChangePasswordInput struct {
	Body service.ChangePasswordRequest
}

// === Handlers ===

func (s *Server) handleSignup(ctx context.Context, input *SignupInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Signup(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleSignin(ctx context.Context, input *SigninInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Signin(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleGoogle(ctx context.Context, input *GoogleInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Google(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleVerifyEmail(ctx context.Context, input *TokenInput) (*UserOutput, error) {
	user, err := s.services.Auth.VerifyEmail(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleResendVerification(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.ResendVerification(ctx, user); err != nil {
		return nil, err
	}
	return message("Verification email sent"), nil
}

func (s *Server) handleForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ForgotPassword(ctx, input.Body.Email); err != nil {
		return nil, err
	}
	return message("If that address has an account, a reset link is on its way"), nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ResetPassword(ctx, input.Token, input.Body); err != nil {
		return nil, err
	}
	return message("Password has been reset"), nil
}

func (s *Server) handleCompleteOnboarding(ctx context.Context, input *OnboardingInput) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Auth.CompleteOnboarding(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: updated}, nil
}

func (s *Server) handleSkipOnboarding(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Auth.SkipOnboarding(ctx, user)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: updated}, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*MeOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	me, err := s.services.Auth.Me(ctx, user)
	if err != nil {
		return nil, err
	}
	return &MeOutput{Body: me}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.ChangePassword(ctx, user, input.Body); err != nil {
		return nil, err
	}
	return message("Password changed"), nil
}

func (s *Server) handleLogout(_ context.Context, _ *struct{}) (*MessageOutput, error) {
	return message("Logged out"), nil
}
