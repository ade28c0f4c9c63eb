package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskwell/internal/apperrors"
	"taskwell/internal/auth"
	"taskwell/internal/model"
	"taskwell/internal/repository"
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// TokenIssuer issues session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// IdentityVerifier verifies a Google ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.GoogleIdentity, error)
}

// SignupInput is the data submitted at password registration.
type SignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Profile         ProfileInput
}

// Session is the result of a successful signup or login.
type Session struct {
	Token string
	User  *model.User
}

// AuthService implements account registration, login and credential changes.
type AuthService struct {
	users  *repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	google IdentityVerifier
	now    func() time.Time
}

func NewAuthService(users *repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, google IdentityVerifier) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, google: google, now: time.Now}
}

// Signup creates a password account and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, apperrors.Validation("Email, password and confirm password required")
	}
	if err := validateNewPassword(in.Password, in.ConfirmPassword, "Password too weak"); err != nil {
		return nil, err
	}
	if err := validateProfile(in.Profile, s.now(), "Name must contain only letters, spaces or hyphens", "Invalid DOB (min age 10 years, not future)"); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := newUser(email, in.Profile)
	user.AuthProvider = model.ProviderPassword
	user.PasswordHash = &hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(apperrors.CodeEmailTaken, "Email already exists")
		}
		return nil, err
	}
	return s.session(user)
}

// Login checks an email and password pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Email and password required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "Email not found")
		}
		return nil, err
	}

	cred, err := user.Credential()
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	switch c := cred.(type) {
	case model.PasswordCredential:
		if err := s.hasher.Verify(c.Hash, password); err != nil {
			return nil, apperrors.Unauthorized(apperrors.CodeInvalidCredentials, "Incorrect password")
		}
	case model.GoogleCredential:
		return nil, apperrors.Conflict(apperrors.CodeProviderMismatch, "This email is registered with Google login. Please sign in with Google.")
	}
	return s.session(user)
}

// GoogleLogin signs in with a Google ID token. An unknown email creates a
// Google account, which needs profile; an email registered with a password is
// refused.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string, profile *ProfileInput) (*Session, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createGoogleUser(ctx, identity.Email, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	cred, err := user.Credential()
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	if _, ok := cred.(model.GoogleCredential); !ok {
		return nil, apperrors.Conflict(apperrors.CodeProviderMismatch, "This email is registered with password login. Please use email+password.")
	}
	return s.session(user)
}

func (s *AuthService) createGoogleUser(ctx context.Context, email string, profile *ProfileInput) (*model.User, error) {
	if profile == nil || profile.Name == "" || profile.Gender == "" || profile.DOB == "" {
		return nil, apperrors.Validation("Additional info required (name, dob, gender)")
	}
	if err := validateProfile(*profile, s.now(), "Invalid name", "Invalid DOB"); err != nil {
		return nil, err
	}

	user := newUser(email, *profile)
	user.AuthProvider = model.ProviderGoogle
	err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent signup for the same email.
		return s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password of a password account.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next, confirm string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	cred, err := user.Credential()
	if err != nil {
		return fmt.Errorf("user %s: %w", user.ID, err)
	}
	pc, ok := cred.(model.PasswordCredential)
	if !ok {
		return apperrors.Conflict(apperrors.CodeProviderMismatch, "Password change not allowed for Google/SSO accounts")
	}
	if err := s.hasher.Verify(pc.Hash, current); err != nil {
		return apperrors.Unauthorized(apperrors.CodeInvalidCredentials, "Current password incorrect")
	}
	if err := validateNewPassword(next, confirm, "Weak password"); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Conflict(apperrors.CodeProviderMismatch, "Password change not allowed for Google/SSO accounts")
		}
		return err
	}
	return nil
}

// SetPassword gives a Google account its first password and turns it into a
// password account.
func (s *AuthService) SetPassword(ctx context.Context, userID, next, confirm string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	cred, err := user.Credential()
	if err != nil {
		return fmt.Errorf("user %s: %w", user.ID, err)
	}
	if _, ok := cred.(model.GoogleCredential); !ok {
		return apperrors.Conflict(apperrors.CodeProviderMismatch, "Only Google users can set password")
	}
	if err := validateNewPassword(next, confirm, "Weak password"); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpgradeToPassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Conflict(apperrors.CodeProviderMismatch, "Only Google users can set password")
		}
		return err
	}
	return nil
}

// Profile returns the stored account of userID.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.findUser(ctx, userID)
}

// UpdateProfile applies a partial profile update and returns the new state.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update repository.ProfileUpdate) (*model.User, error) {
	if update.Name == nil && !update.SetPreferences && !update.ClearTelegramChat {
		return nil, apperrors.Validation("No valid fields to update")
	}
	if update.Name != nil && !ValidName(*update.Name) {
		return nil, apperrors.Validation("Invalid name")
	}
	if update.SetPreferences && update.Preferences == nil {
		update.Preferences = map[string]any{}
	}

	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "User not found")
		}
		return nil, err
	}
	return s.findUser(ctx, userID)
}

// TelegramLinkTTL is how long a Telegram link code stays valid.
const TelegramLinkTTL = 10 * time.Minute

// TelegramLink is a one-time code the user sends to the bot as /start <code>.
type TelegramLink struct {
	Code      string
	ExpiresAt time.Time
}

// TelegramLinkCode issues a fresh link code for userID. Issuing a new code
// invalidates the previous one.
func (s *AuthService) TelegramLinkCode(ctx context.Context, userID string) (*TelegramLink, error) {
	for attempt := 0; ; attempt++ {
		code, err := newLinkCode()
		if err != nil {
			return nil, err
		}
		link := &TelegramLink{Code: code, ExpiresAt: s.now().Add(TelegramLinkTTL)}
		err = s.users.SetTelegramLinkCode(ctx, userID, link.Code, link.ExpiresAt)
		switch {
		case err == nil:
			return link, nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "User not found")
		case errors.Is(err, repository.ErrDuplicate) && attempt < 2:
			continue
		default:
			return nil, err
		}
	}
}

// newLinkCode returns eight base32 characters from 40 random bits.
func newLinkCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link code: %w", err)
	}
	return base32.StdEncoding.EncodeToString(buf), nil
}

// Gender returns the stored gender, "Male" when none was recorded.
func (s *AuthService) Gender(ctx context.Context, userID string) (string, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Gender == "" {
		return "Male", nil
	}
	return user.Gender, nil
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeUserNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) session(user *model.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func newUser(email string, p ProfileInput) *model.User {
	return &model.User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        p.Name,
		Gender:      p.Gender,
		DOB:         p.DOB,
		Preferences: map[string]any{},
	}
}
