package services

import (
	"context"
	"testing"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkgauth "github.com/echopoint/echopoint/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
	}
	svc := newTestUserService(nil, newMockUnitSource(), users)

	me, err := svc.GetMe(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", me.ID)
	assert.Equal(t, "ann@example.com", me.Email)
}

func TestGetMe_Gone(t *testing.T) {
	svc := newTestUserService(nil, newMockUnitSource(), &mockUserRepo{})

	_, err := svc.GetMe(context.Background(), "ghost")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
	assert.Equal(t, "User not found.", appErr.Message)
}

func TestUpdateMe(t *testing.T) {
	units := newMockUnitSource()
	var updated string
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
		UpdateNameFunc: func(ctx context.Context, q database.Querier, userID, name string) error {
			updated = name
			return nil
		},
	}
	svc := newTestUserService(nil, units, users)

	public, err := svc.UpdateMe(context.Background(), "user-1", "New Name")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated)
	assert.Equal(t, "New Name", public.Name)
	assert.Equal(t, 1, units.unit.committed)
}

func TestUpdateMe_SameNameRejected(t *testing.T) {
	units := newMockUnitSource()
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
	}
	svc := newTestUserService(nil, units, users)

	_, err := svc.UpdateMe(context.Background(), "user-1", "Test User")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Equal(t, 0, units.unit.committed)
}

func TestUpdateMyPassword(t *testing.T) {
	units := newMockUnitSource()
	var newHash string
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
		UpdatePasswordFunc: func(ctx context.Context, q database.Querier, userID, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}
	svc := newTestUserService(nil, units, users)

	err := svc.UpdateMyPassword(context.Background(), "user-1", "secret1", "newsecret1")
	require.NoError(t, err)
	require.NotEmpty(t, newHash)
	require.NoError(t, pkgauth.ComparePassword(newHash, "newsecret1"))
	assert.Equal(t, 1, units.unit.committed)
}

func TestUpdateMyPassword_WrongOldPassword(t *testing.T) {
	units := newMockUnitSource()
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
	}
	svc := newTestUserService(nil, units, users)

	err := svc.UpdateMyPassword(context.Background(), "user-1", "wrong", "newsecret1")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Equal(t, 0, units.unit.committed)
}

func TestUpdateMyPassword_SamePasswordRejected(t *testing.T) {
	svc := newTestUserService(nil, newMockUnitSource(), &mockUserRepo{})

	err := svc.UpdateMyPassword(context.Background(), "user-1", "secret1", "secret1")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
	assert.Equal(t, "New password must be different from current password.", appErr.Message)
}

func TestDeleteMe(t *testing.T) {
	units := newMockUnitSource()
	deactivated := false
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
		DeactivateFunc: func(ctx context.Context, q database.Querier, userID string) error {
			deactivated = true
			return nil
		},
	}
	svc := newTestUserService(nil, units, users)

	err := svc.DeleteMe(context.Background(), "user-1", "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, deactivated)
	assert.Equal(t, 1, units.unit.committed)
}

func TestDeleteMe_WrongConfirmation(t *testing.T) {
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
	}

	t.Run("wrong email", func(t *testing.T) {
		svc := newTestUserService(nil, newMockUnitSource(), users)
		err := svc.DeleteMe(context.Background(), "user-1", "other@example.com", "secret1")
		require.Error(t, err)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 401, appErr.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := newTestUserService(nil, newMockUnitSource(), users)
		err := svc.DeleteMe(context.Background(), "user-1", "ann@example.com", "wrong")
		require.Error(t, err)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 401, appErr.StatusCode)
	})
}

func TestGetAllUsers(t *testing.T) {
	users := &mockUserRepo{
		ListFunc: func(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.User, error) {
			return []*models.User{
				verifiedUser("user-1", "a@example.com", "secret1"),
				verifiedUser("user-2", "b@example.com", "secret1"),
			}, nil
		},
	}
	svc := newTestUserService(nil, newMockUnitSource(), users)

	public, err := svc.GetAllUsers(context.Background(), repositories.ListOptions{})
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "user-1", public[0].ID)
}

func TestGetAllUsers_Empty(t *testing.T) {
	svc := newTestUserService(nil, newMockUnitSource(), &mockUserRepo{})

	_, err := svc.GetAllUsers(context.Background(), repositories.ListOptions{})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
	assert.Equal(t, "No matching records.", appErr.Message)
}

func TestDeleteUser_Admin(t *testing.T) {
	units := newMockUnitSource()
	deactivated := ""
	users := &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return verifiedUser(id, "ann@example.com", "secret1"), nil
		},
		DeactivateFunc: func(ctx context.Context, q database.Querier, userID string) error {
			deactivated = userID
			return nil
		},
	}
	svc := newTestUserService(nil, units, users)

	err := svc.DeleteUser(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Equal(t, "user-9", deactivated)
}

func TestDeleteUser_Unknown(t *testing.T) {
	svc := newTestUserService(nil, newMockUnitSource(), &mockUserRepo{})

	err := svc.DeleteUser(context.Background(), "ghost")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
	assert.Equal(t, "This user doesn't exist.", appErr.Message)
}
