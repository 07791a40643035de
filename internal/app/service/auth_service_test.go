package service

import (
	"context"
	"encoding/json"
	"errors"
	"impactlab/internal/common"
	"impactlab/internal/common/security"
	"impactlab/internal/domain/model"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/logging"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errStoreDown = errors.New("connection refused")

// countingUserRepo records store traffic and can inject failures.
type countingUserRepo struct {
	repository.UserRepository
	reads     atomic.Int32
	writes    atomic.Int32
	findErr   error
	createErr error
}

func (r *countingUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.reads.Add(1)
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.UserRepository.FindByEmail(ctx, email)
}

func (r *countingUserRepo) Create(ctx context.Context, user *model.User) error {
	r.writes.Add(1)
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, user)
}

type authFixture struct {
	svc    *AuthService
	repo   *countingUserRepo
	codec  *security.SessionCodec
	hasher *security.BcryptHasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := &countingUserRepo{UserRepository: repository.NewMemoryUserRepository()}
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewSessionCodec([]byte("test-secret"), true)
	return &authFixture{
		svc:    NewAuthService(repo, hasher, codec, logging.Discard()),
		repo:   repo,
		codec:  codec,
		hasher: hasher,
	}
}

func (f *authFixture) seed(t *testing.T, email, password string, role model.Role, status model.UserStatus) *model.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{ID: "seed-" + email, Name: "Seeded", Email: email, HashedPassword: hash, Role: role, Status: status}
	require.NoError(t, f.repo.UserRepository.Create(context.Background(), u))
	return u
}

func requireAuthKind(t *testing.T, err error, kind AuthErrorKind) *AuthError {
	t.Helper()
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, kind, authErr.Kind, "got %s", authErr.Kind)
	return authErr
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestRegister_PasswordMismatchCreatesNothing(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "A", Email: "a@b.com", Password: "x", ConfirmPassword: "y",
	})

	assert.Nil(t, res)
	authErr := requireAuthKind(t, err, KindPasswordMismatch)
	assert.Equal(t, "Passwords do not match", authErr.Message)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Zero(t, f.repo.writes.Load())
	_, findErr := f.repo.UserRepository.FindByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, findErr, common.ErrNotFound)
}

func TestRegister_ValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		kind AuthErrorKind
		msg  string
	}{
		{
			name: "missing name wins over everything",
			req:  RegisterRequest{Email: "bad", Password: "x", ConfirmPassword: "y"},
			kind: KindMissingFields,
			msg:  "All fields are required",
		},
		{
			name: "missing confirmation",
			req:  RegisterRequest{Name: "A", Email: "a@b.com", Password: "x"},
			kind: KindMissingFields,
			msg:  "All fields are required",
		},
		{
			name: "mismatch before email format",
			req:  RegisterRequest{Name: "A", Email: "not-an-email", Password: "x", ConfirmPassword: "y"},
			kind: KindPasswordMismatch,
			msg:  "Passwords do not match",
		},
		{
			name: "email without dot in domain",
			req:  RegisterRequest{Name: "A", Email: "a@b", Password: "x", ConfirmPassword: "x"},
			kind: KindInvalidEmailFormat,
			msg:  "Invalid email format",
		},
		{
			name: "email with whitespace",
			req:  RegisterRequest{Name: "A", Email: "a b@c.com", Password: "x", ConfirmPassword: "x"},
			kind: KindInvalidEmailFormat,
			msg:  "Invalid email format",
		},
		{
			name: "password longer than 72 bytes",
			req:  RegisterRequest{Name: "A", Email: "a@b.com", Password: strings.Repeat("p", 73), ConfirmPassword: strings.Repeat("p", 73)},
			kind: KindPasswordTooLong,
			msg:  "Password must be at most 72 bytes long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), tt.req)
			authErr := requireAuthKind(t, err, tt.kind)
			assert.Equal(t, tt.msg, authErr.Message)
			assert.Zero(t, f.repo.reads.Load(), "validation must not touch the store")
			assert.Zero(t, f.repo.writes.Load())
		})
	}
}

func TestRegister_PasswordTooLongIsValidationError(t *testing.T) {
	f := newAuthFixture(t)
	long := strings.Repeat("é", 37)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "A", Email: "a@b.com", Password: long, ConfirmPassword: long,
	})

	requireAuthKind(t, err, KindPasswordTooLong)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, common.HTTPStatusFromError(err))

	limit := strings.Repeat("p", 72)
	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "A", Email: "a@b.com", Password: limit, ConfirmPassword: limit,
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Cookie)
}

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Alice", Email: "alice@impactlab.test", Password: "pw1", ConfirmPassword: "pw1",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RouteRooms, res.Redirect)
	assert.Equal(t, model.RoleClient, res.Session.Role)
	assert.Equal(t, model.UserStatusActive, res.Session.Status)
	assert.Equal(t, "alice@impactlab.test", res.Session.Email)
	assert.NotEmpty(t, res.Session.ID)
	assert.EqualValues(t, 1, f.repo.reads.Load())
	assert.EqualValues(t, 1, f.repo.writes.Load())

	require.NotNil(t, res.Cookie)
	assert.Equal(t, security.SessionCookieName, res.Cookie.Name)
	assert.True(t, res.Cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, res.Cookie.SameSite)

	// the new cookie identifies the same user on a later request
	sess := f.svc.CurrentSession(requestWithCookie(res.Cookie))
	require.NotNil(t, sess)
	assert.Equal(t, res.Session, sess)

	stored, err := f.repo.UserRepository.FindByEmail(context.Background(), "alice@impactlab.test")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.HashedPassword)
	assert.True(t, f.hasher.Verify(stored.HashedPassword, "pw1"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "taken@impactlab.test", "pw", model.RoleClient, model.UserStatusActive)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Bob", Email: "taken@impactlab.test", Password: "pw2", ConfirmPassword: "pw2",
	})

	authErr := requireAuthKind(t, err, KindEmailInUse)
	assert.Equal(t, "Email already in use", authErr.Message)
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Zero(t, f.repo.writes.Load())

	_, total, err := f.repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t)
	const workers = 16

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		inUse     atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), RegisterRequest{
				Name: "Racer", Email: "race@impactlab.test", Password: "pw", ConfirmPassword: "pw",
			})
			var authErr *AuthError
			switch {
			case err == nil:
				successes.Add(1)
			case errors.As(err, &authErr) && authErr.Kind == KindEmailInUse:
				inUse.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, workers-1, inUse.Load())
}

func TestRegister_StoreFailureIsGeneric(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.createErr = errStoreDown

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "A", Email: "a@b.com", Password: "x", ConfirmPassword: "x",
	})

	authErr := requireAuthKind(t, err, KindPersistence)
	assert.Equal(t, "Failed to create user. Please try again.", authErr.Message)
	assert.NotContains(t, authErr.Error(), "connection refused")
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, http.StatusInternalServerError, common.HTTPStatusFromError(err))
}

func TestRegister_LostRaceOnCreateIsEmailInUse(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.createErr = common.Errorf("duplicate: %w", common.ErrConflict)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "A", Email: "a@b.com", Password: "x", ConfirmPassword: "x",
	})

	requireAuthKind(t, err, KindEmailInUse)
}

func TestLogin_ClientRedirectsToRooms(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "client@impactlab.test", "secret", model.RoleClient, model.UserStatusActive)

	res, err := f.svc.Login(context.Background(), LoginRequest{Email: "client@impactlab.test", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, model.RouteRooms, res.Redirect)
	assert.Equal(t, model.RoleClient, res.Session.Role)
	assert.EqualValues(t, 1, f.repo.reads.Load())
	assert.Zero(t, f.repo.writes.Load())
}

func TestLogin_AdminRoleRoundTrips(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "admin@impactlab.test", "root", model.RoleAdmin, model.UserStatusActive)

	res, err := f.svc.Login(context.Background(), LoginRequest{Email: "admin@impactlab.test", Password: "root"})
	require.NoError(t, err)
	assert.Equal(t, model.RouteAdmin, res.Redirect)

	sess := f.svc.CurrentSession(requestWithCookie(res.Cookie))
	require.NotNil(t, sess)
	assert.Equal(t, model.RoleAdmin, sess.Role)
	assert.True(t, sess.IsAdmin())
}

func TestLogin_UnknownEmailAndWrongPasswordLookTheSame(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "known@impactlab.test", "right", model.RoleClient, model.UserStatusActive)

	_, errUnknown := f.svc.Login(context.Background(), LoginRequest{Email: "nobody@impactlab.test", Password: "right"})
	_, errWrong := f.svc.Login(context.Background(), LoginRequest{Email: "known@impactlab.test", Password: "wrong"})

	a := requireAuthKind(t, errUnknown, KindInvalidCredentials)
	b := requireAuthKind(t, errWrong, KindInvalidCredentials)
	assert.Equal(t, "Invalid email or password", a.Message)
	assert.Equal(t, a.Message, b.Message)
	assert.ErrorIs(t, errWrong, common.ErrUnauthorized)
}

type countingHasher struct {
	PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(hash, password string) bool {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(hash, password)
}

func TestLogin_UnknownEmailStillVerifiesAPassword(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: security.NewBcryptHasher(bcrypt.MinCost)}
	svc := NewAuthService(repository.NewMemoryUserRepository(), hasher,
		security.NewSessionCodec([]byte("test-secret"), true), logging.Discard())

	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@impactlab.test", Password: "guess"})
		requireAuthKind(t, err, KindInvalidCredentials)
	}
	assert.Equal(t, int32(2), hasher.verifies.Load())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "a@b.com"})

	authErr := requireAuthKind(t, err, KindMissingFields)
	assert.Equal(t, "Email and password are required", authErr.Message)
	assert.Zero(t, f.repo.reads.Load())
}

func TestLogin_SuspendedAccountGetsGenericError(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "gone@impactlab.test", "pw", model.RoleClient, model.UserStatusSuspended)

	res, err := f.svc.Login(context.Background(), LoginRequest{Email: "gone@impactlab.test", Password: "pw"})

	assert.Nil(t, res)
	requireAuthKind(t, err, KindInvalidCredentials)
}

func TestLogin_StoreFailureIsGeneric(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.findErr = errStoreDown

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "x"})

	authErr := requireAuthKind(t, err, KindPersistence)
	assert.Equal(t, "Something went wrong. Please try again.", authErr.Message)
}

func TestSession_NeverCarriesPassword(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Name: "Eve", Email: "eve@impactlab.test", Password: "sup3r-secret", ConfirmPassword: "sup3r-secret",
	})
	require.NoError(t, err)

	payload, err := json.Marshal(res.Session)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "sup3r-secret")
	assert.NotContains(t, string(payload), "assword")
	assert.NotContains(t, string(payload), "$2a$")
}

func TestLogout_ThenCurrentSessionIsNil(t *testing.T) {
	f := newAuthFixture(t)
	f.seed(t, "bye@impactlab.test", "pw", model.RoleClient, model.UserStatusActive)
	res, err := f.svc.Login(context.Background(), LoginRequest{Email: "bye@impactlab.test", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, f.svc.CurrentSession(requestWithCookie(res.Cookie)))

	out := f.svc.Logout()

	assert.Equal(t, model.RouteHome, out.Redirect)
	assert.Nil(t, out.Session)
	assert.Equal(t, security.SessionCookieName, out.Cookie.Name)
	assert.Less(t, out.Cookie.MaxAge, 0)
	// a browser applying the deletion cookie sends an empty value next time
	assert.Nil(t, f.svc.CurrentSession(requestWithCookie(&http.Cookie{Name: out.Cookie.Name, Value: out.Cookie.Value})))
	assert.Nil(t, f.svc.CurrentSession(requestWithCookie(nil)))
}

func TestCurrentSession_TamperedCookie(t *testing.T) {
	f := newAuthFixture(t)

	forged := &http.Cookie{Name: security.SessionCookieName, Value: `{"id":"1","role":"admin"}`}

	assert.Nil(t, f.svc.CurrentSession(requestWithCookie(forged)))
}

func TestEnsureAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnsureAdmin(ctx, "Root", "root@impactlab.test", "changeme")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(ctx, "Root", "root@impactlab.test", "other")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := f.svc.Login(ctx, LoginRequest{Email: "root@impactlab.test", Password: "changeme"})
	require.NoError(t, err)
	assert.Equal(t, model.RouteAdmin, res.Redirect)
}

func TestAuthError_Categories(t *testing.T) {
	tests := []struct {
		kind   AuthErrorKind
		target error
		status int
	}{
		{KindMissingFields, common.ErrValidation, http.StatusBadRequest},
		{KindPasswordMismatch, common.ErrValidation, http.StatusBadRequest},
		{KindInvalidEmailFormat, common.ErrValidation, http.StatusBadRequest},
		{KindPasswordTooLong, common.ErrValidation, http.StatusBadRequest},
		{KindEmailInUse, common.ErrConflict, http.StatusConflict},
		{KindInvalidCredentials, common.ErrUnauthorized, http.StatusUnauthorized},
		{KindPersistence, common.ErrInternalServer, http.StatusInternalServerError},
		{KindRateLimited, common.ErrTooManyRequests, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := error(newAuthError(tt.kind, "msg"))
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.status, common.HTTPStatusFromError(err))
		})
	}
}
