package service

import (
	"context"
	"fmt"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/logging"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserServiceWithUsers(t *testing.T, n int) (*UserService, repository.UserRepository) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(context.Background(), &model.User{
			ID:             fmt.Sprintf("u-%02d", i),
			Name:           fmt.Sprintf("User %d", i),
			Email:          fmt.Sprintf("user%d@impactlab.test", i),
			HashedPassword: "hash",
			Role:           model.RoleClient,
			Status:         model.UserStatusActive,
		}))
	}
	return NewUserService(repo, logging.Discard()), repo
}

func TestUserService_ListUsers(t *testing.T) {
	svc, _ := newUserServiceWithUsers(t, 7)

	page, err := svc.ListUsers(context.Background(), 2, 5)
	require.NoError(t, err)

	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Users, 2)
}

func TestUserService_UpdateUser(t *testing.T) {
	svc, repo := newUserServiceWithUsers(t, 1)
	ctx := context.Background()

	role := model.RoleAdmin
	status := model.UserStatusSuspended
	updated, err := svc.UpdateUser(ctx, "u-00", UpdateUserRequest{Role: &role, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
	assert.Equal(t, "User 0", updated.Name)

	stored, err := repo.FindByID(ctx, "u-00")
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, stored.Status)
	assert.Equal(t, "hash", stored.HashedPassword, "admin edits never touch the password")
}

func TestUserService_UpdateUserValidation(t *testing.T) {
	svc, _ := newUserServiceWithUsers(t, 1)
	ctx := context.Background()

	bogus := model.Role("owner")
	_, err := svc.UpdateUser(ctx, "u-00", UpdateUserRequest{Role: &bogus})
	assert.ErrorIs(t, err, common.ErrValidation)

	empty := " "
	_, err = svc.UpdateUser(ctx, "u-00", UpdateUserRequest{Name: &empty})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.UpdateUser(ctx, "nobody", UpdateUserRequest{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserService_GetAndDelete(t *testing.T) {
	svc, _ := newUserServiceWithUsers(t, 1)
	ctx := context.Background()

	u, err := svc.GetUser(ctx, "u-00")
	require.NoError(t, err)
	assert.Equal(t, "user0@impactlab.test", u.Email)

	require.NoError(t, svc.DeleteUser(ctx, "u-00"))
	_, err = svc.GetUser(ctx, "u-00")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
