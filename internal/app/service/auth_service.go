package service

import (
	"context"
	"errors"
	"fmt"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/logging"
	"net/http"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// PasswordHasher is satisfied by security.BcryptHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// SessionIssuer is satisfied by security.SessionCodec.
type SessionIssuer interface {
	Cookie(sess *model.Session) (*http.Cookie, error)
	ExpiredCookie() *http.Cookie
	FromRequest(r *http.Request) *model.Session
}

type AuthService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	sessions SessionIssuer
	logger   logging.Logger

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthService(userRepo repository.UserRepository, hasher PasswordHasher, sessions SessionIssuer, logger logging.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger.With("component", "auth"),
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResult is the outcome of a successful auth operation. The caller writes
// Cookie and then navigates to Redirect.
type AuthResult struct {
	Session  *model.Session `json:"user,omitempty"`
	Redirect model.Route    `json:"redirect"`
	Cookie   *http.Cookie   `json:"-"`
}

// Login checks the credentials and issues a session. Unknown emails, wrong
// passwords and inactive accounts all produce the same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, newAuthError(KindMissingFields, msgLoginFieldsRequired)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.verifyDecoy(req.Password)
			return nil, newAuthError(KindInvalidCredentials, msgInvalidCredentials)
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, &AuthError{Kind: KindPersistence, Message: msgSomethingWentWrong, Err: err}
	}

	if !s.hasher.Verify(user.HashedPassword, req.Password) {
		return nil, newAuthError(KindInvalidCredentials, msgInvalidCredentials)
	}
	if !user.IsActive() {
		s.logger.Info(ctx, "login refused for inactive account", "user_id", user.ID, "status", user.Status)
		return nil, newAuthError(KindInvalidCredentials, msgInvalidCredentials)
	}

	return s.issue(ctx, user)
}

// Register validates the form, creates a client account and signs it in.
// Checks run in a fixed order so the first failing one is reported.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, newAuthError(KindMissingFields, msgAllFieldsRequired)
	}
	if req.Password != req.ConfirmPassword {
		return nil, newAuthError(KindPasswordMismatch, msgPasswordsDoNotMatch)
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, newAuthError(KindInvalidEmailFormat, msgInvalidEmailFormat)
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, newAuthError(KindPasswordTooLong, msgPasswordTooLong)
	}

	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, newAuthError(KindEmailInUse, msgEmailInUse)
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Error(ctx, "registration lookup failed", "error", err)
		return nil, &AuthError{Kind: KindPersistence, Message: msgSomethingWentWrong, Err: err}
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, &AuthError{Kind: KindPersistence, Message: msgCreateUserFailed, Err: err}
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleClient,
		Status:         model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with another registration for the same email.
		if errors.Is(err, common.ErrConflict) {
			return nil, newAuthError(KindEmailInUse, msgEmailInUse)
		}
		s.logger.Error(ctx, "user creation failed", "error", err)
		return nil, &AuthError{Kind: KindPersistence, Message: msgCreateUserFailed, Err: err}
	}
	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return s.issue(ctx, user)
}

// verifyDecoy runs a password check against a throwaway hash so that an
// unknown email costs as much as a wrong password.
func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn(context.Background(), "decoy hash unavailable", "error", err)
			return
		}
		s.decoyHash = hash
	})
	s.hasher.Verify(s.decoyHash, password)
}

// Logout always succeeds.
func (s *AuthService) Logout() *AuthResult {
	return &AuthResult{
		Redirect: model.RouteHome,
		Cookie:   s.sessions.ExpiredCookie(),
	}
}

// CurrentSession returns the session carried by r, or nil when the cookie is
// absent, expired or not one we signed.
func (s *AuthService) CurrentSession(r *http.Request) *model.Session {
	return s.sessions.FromRequest(r)
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	sess := model.NewSession(user)
	cookie, err := s.sessions.Cookie(sess)
	if err != nil {
		s.logger.Error(ctx, "session encoding failed", "user_id", user.ID, "error", err)
		return nil, &AuthError{Kind: KindPersistence, Message: msgSomethingWentWrong, Err: err}
	}
	return &AuthResult{
		Session:  sess,
		Redirect: model.LandingRoute(sess),
		Cookie:   cookie,
	}, nil
}

// EnsureAdmin creates an active admin account with the given credentials
// unless a user with that email already exists. It reports whether it
// created one.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return false, fmt.Errorf("looking up admin %s: %w", email, err)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           model.RoleAdmin,
		Status:         model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	s.logger.Info(ctx, "admin account created", "user_id", admin.ID)
	return true, nil
}
