package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/id"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/normalize"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// AuthService handles accounts and credentials: signup, sign-in with a
// password or a Google ID token, email verification, password reset and
// access token verification.
type AuthService struct {
	users     UserStore
	tokens    *auth.TokenService
	google    GoogleVerifier
	sharing   *SharingService
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger

	verifyTTL time.Duration
	resetTTL  time.Duration
}

// NewAuthService creates a new authentication service. google and sharing
// may be nil.
func NewAuthService(
	users UserStore,
	tokens *auth.TokenService,
	google GoogleVerifier,
	sharing *SharingService,
	notifier Notifier,
	v *validation.Validator,
	cfg config.AuthConfig,
	log *slog.Logger,
) *AuthService {
	s := &AuthService{
		users:     users,
		tokens:    tokens,
		google:    google,
		sharing:   sharing,
		notifier:  orNoopNotifier(notifier),
		validator: v,
		logger:    logger.OrDiscard(log),
		verifyTTL: cfg.VerificationDuration,
		resetTTL:  cfg.ResetDuration,
	}
	if s.verifyTTL <= 0 {
		s.verifyTTL = 24 * time.Hour
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	return s
}

// SignupRequest contains local account registration data.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
}

// SigninRequest contains local credentials.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleRequest carries a Google ID token from the client.
type GoogleRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// AuthResponse is returned by every sign-in path.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
	// Created is true when the call registered a new account.
	Created bool `json:"created,omitempty"`
}

// Sanitize returns a copy of u without credentials or one-time tokens.
func Sanitize(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.VerificationToken = ""
	out.VerificationExpiresAt = time.Time{}
	out.PasswordResetToken = ""
	out.PasswordResetExpiresAt = time.Time{}
	return &out
}

func newUser(email, name string) (*domain.User, error) {
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}
	u := &domain.User{
		Email:       domain.NormalizeEmail(email),
		Name:        name,
		Role:        domain.RoleUser,
		Status:      domain.AccountActive,
		Preferences: domain.DefaultPreferences(),
		Profile: domain.Profile{
			FavoriteCuisines:   []string{},
			DietaryPreferences: []string{},
		},
		Following:   []string{},
		Followers:   []string{},
		Recipes:     []string{},
		Favorites:   []string{},
		Collections: []domain.Collection{},
	}
	u.ID = userID
	u.Preferences.DietaryRestrictions = []string{}
	u.Preferences.Allergies = []string{}
	u.InitTimestamps()
	return u, nil
}

// Signup registers a local account, emails a verification link and signs
// the user in. Shares addressed to the email before signup are claimed.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(req.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, domainerrors.AlreadyExists("an account with this email already exists")
	} else if !store.IsNotFound(err) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	username := ""
	if req.Username != "" {
		username = normalize.Username(req.Username)
		if len(username) < 3 {
			return nil, domainerrors.ValidationWithDetails("username is invalid",
				map[string]string{"username": "must contain at least 3 letters, digits, dots or underscores"})
		}
		if err := s.usernameAvailable(ctx, username, ""); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := newUser(email, req.Name)
	if err != nil {
		return nil, err
	}
	user.Username = username
	user.PasswordHash = hash
	user.AuthMethod = domain.AuthLocal
	user.LastLoginAt = time.Now()

	token, err := s.issueVerification(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeErr(err, "account")
	}

	s.notifier.SendVerification(user, token, s.verifyTTL)
	if s.sharing != nil {
		s.sharing.ClaimPendingShares(ctx, user)
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return s.respond(user, true)
}

func (s *AuthService) usernameAvailable(ctx context.Context, username, selfID string) error {
	existing, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != selfID:
		return domainerrors.AlreadyExists("username is already taken")
	case err != nil && !store.IsNotFound(err):
		return fmt.Errorf("lookup username: %w", err)
	}
	return nil
}

func (s *AuthService) issueVerification(u *domain.User) (string, error) {
	token, err := id.Token()
	if err != nil {
		return "", err
	}
	u.VerificationToken = token
	u.VerificationExpiresAt = time.Now().Add(s.verifyTTL)
	return token, nil
}

// Signin authenticates a local account.
func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if store.IsNotFound(err) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, domainerrors.InvalidCredentials("this account signs in with Google")
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid credentials")
	}
	if err := checkActive(user); err != nil {
		return nil, err
	}

	user = s.touchLogin(ctx, user, nil)
	s.logger.Info("user signed in", "user_id", user.ID)
	return s.respond(user, false)
}

func checkActive(u *domain.User) error {
	switch u.Status {
	case domain.AccountSuspended:
		return domainerrors.Forbidden("your account has been suspended")
	case domain.AccountDeleted:
		return domainerrors.Forbidden("your account has been deleted")
	}
	return nil
}

// touchLogin records the login time and applies extra, if set. Failures
// are logged; sign-in proceeds with the loaded user.
func (s *AuthService) touchLogin(ctx context.Context, user *domain.User, extra func(*domain.User)) *domain.User {
	updated, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
		u.LastLoginAt = time.Now()
		if extra != nil {
			extra(u)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to update last login time", "user_id", user.ID, "error", err)
		return user
	}
	return updated
}

// Google signs in with a Google ID token. The account is found by Google
// subject, then by email (linking an existing local account); otherwise a
// verified account is created.
func (s *AuthService) Google(ctx context.Context, req GoogleRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if s.google == nil {
		return nil, domainerrors.InvalidState("Google sign-in is not configured")
	}

	ident, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleNotConfigured) {
			return nil, domainerrors.InvalidState("Google sign-in is not configured")
		}
		s.logger.Debug("google token rejected", "error", err)
		return nil, domainerrors.Unauthorized("invalid Google token")
	}
	if ident.Email == "" || !ident.EmailVerified {
		return nil, domainerrors.Unauthorized("Google account email is not verified")
	}

	user, err := s.users.GetUserByGoogleID(ctx, ident.Subject)
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("lookup google user: %w", err)
	}
	if user == nil {
		user, err = s.users.GetUserByEmail(ctx, ident.Email)
		if err != nil && !store.IsNotFound(err) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
	}

	if user == nil {
		created, err := s.createGoogleUser(ctx, ident)
		if err != nil {
			return nil, err
		}
		return s.respond(created, true)
	}

	if err := checkActive(user); err != nil {
		return nil, err
	}
	linked := user.GoogleID == ""
	user = s.touchLogin(ctx, user, func(u *domain.User) {
		u.GoogleID = ident.Subject
		u.EmailVerified = true
		u.VerificationToken = ""
		u.VerificationExpiresAt = time.Time{}
		if ident.Picture != "" {
			u.Profile.Picture = ident.Picture
		}
	})
	if linked {
		s.logger.Info("google account linked", "user_id", user.ID)
	}
	s.logger.Info("user signed in with google", "user_id", user.ID)
	return s.respond(user, false)
}

func (s *AuthService) createGoogleUser(ctx context.Context, ident *auth.GoogleIdentity) (*domain.User, error) {
	name := ident.Name
	if name == "" {
		name = ident.Email
	}
	user, err := newUser(ident.Email, name)
	if err != nil {
		return nil, err
	}
	user.GoogleID = ident.Subject
	user.AuthMethod = domain.AuthGoogle
	user.EmailVerified = true
	user.Profile.Picture = ident.Picture
	user.LastLoginAt = time.Now()

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeErr(err, "account")
	}
	if s.sharing != nil {
		s.sharing.ClaimPendingShares(ctx, user)
	}
	s.logger.Info("user signed up with google", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) respond(user *domain.User, created bool) (*AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.AccessTokenDuration()),
		User:      Sanitize(user),
		Created:   created,
	}, nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, domainerrors.InvalidState("verification link is invalid or has already been used")
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}
	if time.Now().After(user.VerificationExpiresAt) {
		return nil, domainerrors.TokenExpired("verification link has expired")
	}

	updated, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
		u.EmailVerified = true
		u.VerificationToken = ""
		u.VerificationExpiresAt = time.Time{}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	s.logger.Info("email verified", "user_id", user.ID)
	return Sanitize(updated), nil
}

// ResendVerification issues a fresh verification link.
func (s *AuthService) ResendVerification(ctx context.Context, requester *domain.User) error {
	if requester.EmailVerified {
		return domainerrors.InvalidState("email is already verified")
	}

	var token string
	updated, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		var err error
		token, err = s.issueVerification(u)
		return err
	})
	if err != nil {
		return storeErr(err, "user")
	}
	s.notifier.SendVerification(updated, token, s.verifyTTL)
	return nil
}

// ForgotPassword emails a reset link when the address belongs to an active
// local account. It reports nothing either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if !s.validator.Email(domain.NormalizeEmail(email)) {
		return domainerrors.ValidationWithDetails("email must be a valid email address",
			map[string]string{"email": "must be a valid email address"})
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !store.IsNotFound(err) {
			s.logger.Warn("password reset lookup failed", "error", err)
		}
		return nil
	}
	if !user.IsActive() || user.PasswordHash == "" {
		return nil
	}

	token, err := id.Token()
	if err != nil {
		return err
	}
	updated, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
		u.PasswordResetToken = token
		u.PasswordResetExpiresAt = time.Now().Add(s.resetTTL)
		return nil
	})
	if err != nil {
		s.logger.Warn("password reset not issued", "user_id", user.ID, "error", err)
		return nil
	}
	s.notifier.SendPasswordReset(updated, token, s.resetTTL)
	s.logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPasswordRequest sets a new password with a reset token.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if store.IsNotFound(err) {
			return domainerrors.InvalidState("reset link is invalid or has already been used")
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if time.Now().After(user.PasswordResetExpiresAt) {
		return domainerrors.TokenExpired("reset link has expired")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
		u.PasswordHash = hash
		u.PasswordResetToken = ""
		u.PasswordResetExpiresAt = time.Time{}
		return nil
	}); err != nil {
		return storeErr(err, "user")
	}
	s.logger.Info("password reset", "user_id", user.ID)
	return nil
}

// ChangePasswordRequest replaces the password of a signed-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
}

// ChangePassword sets a new password. Accounts that already have one must
// supply it; Google accounts may add a first password.
func (s *AuthService) ChangePassword(ctx context.Context, requester *domain.User, req ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return storeErr(err, "user")
	}
	if user.PasswordHash != "" {
		if req.CurrentPassword == "" {
			return domainerrors.ValidationWithDetails("current password is required",
				map[string]string{"current_password": "is required"})
		}
		ok, err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			return domainerrors.InvalidCredentials("current password is incorrect")
		}
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.MutateUser(ctx, user.ID, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	}); err != nil {
		return storeErr(err, "user")
	}
	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// OnboardingRequest carries the answers of the first-run questionnaire.
type OnboardingRequest struct {
	CookingLevel        domain.CookingLevel `json:"cooking_level,omitempty" validate:"cooking_level"`
	FavoriteCuisines    []string            `json:"favorite_cuisines,omitempty" validate:"max=20,dive,max=50"`
	DietaryPreferences  []string            `json:"dietary_preferences,omitempty" validate:"max=20,dive,max=50"`
	DietaryRestrictions []string            `json:"dietary_restrictions,omitempty" validate:"max=20,dive,max=50"`
	DefaultCategory     domain.Category     `json:"default_category,omitempty" validate:"category"`
	DefaultRegion       domain.Region       `json:"default_region,omitempty" validate:"region"`
	DefaultServings     int                 `json:"default_servings,omitempty" validate:"gte=0,lte=100"`
}

// CompleteOnboarding stores the questionnaire answers and marks
// onboarding done.
func (s *AuthService) CompleteOnboarding(ctx context.Context, requester *domain.User, req OnboardingRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	updated, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		if req.CookingLevel != "" {
			u.Profile.CookingLevel = req.CookingLevel
		}
		if req.FavoriteCuisines != nil {
			u.Profile.FavoriteCuisines = normalize.Lines(req.FavoriteCuisines)
		}
		if req.DietaryPreferences != nil {
			u.Profile.DietaryPreferences = normalize.Lines(req.DietaryPreferences)
		}
		if req.DietaryRestrictions != nil {
			u.Preferences.DietaryRestrictions = normalize.Lines(req.DietaryRestrictions)
		}
		if req.DefaultCategory != "" {
			u.Preferences.DefaultCategory = req.DefaultCategory
		}
		if req.DefaultRegion != "" {
			u.Preferences.DefaultRegion = req.DefaultRegion
		}
		if req.DefaultServings > 0 {
			u.Preferences.DefaultServings = req.DefaultServings
		}
		u.OnboardingComplete = true
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return Sanitize(updated), nil
}

// SkipOnboarding marks onboarding done without changing anything else.
func (s *AuthService) SkipOnboarding(ctx context.Context, requester *domain.User) (*domain.User, error) {
	updated, err := s.users.MutateUser(ctx, requester.ID, func(u *domain.User) error {
		u.OnboardingComplete = true
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return Sanitize(updated), nil
}

// UserCounts summarizes the lists a user holds.
type UserCounts struct {
	Recipes     int `json:"recipes"`
	Favorites   int `json:"favorites"`
	Followers   int `json:"followers"`
	Following   int `json:"following"`
	Collections int `json:"collections"`
}

// CountsFor returns u's list sizes.
func CountsFor(u *domain.User) UserCounts {
	return UserCounts{
		Recipes:     len(u.Recipes),
		Favorites:   len(u.Favorites),
		Followers:   len(u.Followers),
		Following:   len(u.Following),
		Collections: len(u.Collections),
	}
}

// MeResponse is the signed-in user's own record.
type MeResponse struct {
	User   *domain.User `json:"user"`
	Counts UserCounts   `json:"counts"`
}

// Me returns the requester's record with list counts.
func (s *AuthService) Me(ctx context.Context, requester *domain.User) (*MeResponse, error) {
	user, err := s.users.GetUser(ctx, requester.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return &MeResponse{User: Sanitize(user), Counts: CountsFor(user)}, nil
}

// Authenticate verifies an access token and loads its user. Tokens of
// suspended or deleted accounts are refused.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if err := checkActive(user); err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}
