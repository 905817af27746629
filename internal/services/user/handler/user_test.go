package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"warehouse-system/internal/database/models"
	"warehouse-system/internal/database/testdb"
	"warehouse-system/internal/ledger"
	audithandler "warehouse-system/internal/services/audit/handler"
	sysutils "warehouse-system/internal/utils"
)

func newUserHandler(t *testing.T) (*UserHandler, *gorm.DB, *sysutils.TokenManager) {
	db := testdb.New(t)
	tokens := sysutils.NewTokenManager("test-secret", time.Hour)
	return NewUserHandler(db, audithandler.NewAuditHandler(db), tokens), db, tokens
}

func TestCreateUserHashesPassword(t *testing.T) {
	h, db, _ := newUserHandler(t)

	user, err := h.CreateUser(context.Background(), CreateUserRequest{
		Username: "keeper1", Password: "secret-pw", Role: models.RoleKeeper, FullName: "Keeper One",
	}, "admin")
	require.NoError(t, err)
	assert.True(t, user.Active)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotEqual(t, "secret-pw", stored.Password)
	assert.Contains(t, stored.Password, "$2a$")

	_, err = h.CreateUser(context.Background(), CreateUserRequest{
		Username: "keeper1", Password: "another-pw", Role: models.RoleKeeper, FullName: "Dup",
	}, "admin")
	assert.True(t, ledger.IsConflict(err))
}

func TestCreateUserValidation(t *testing.T) {
	h, _, _ := newUserHandler(t)
	ctx := context.Background()

	tests := []CreateUserRequest{
		{Username: "", Password: "secret-pw", Role: models.RoleStaff, FullName: "x"},
		{Username: "u", Password: "123", Role: models.RoleStaff, FullName: "x"},
		{Username: "u", Password: "secret-pw", Role: "OWNER", FullName: "x"},
		{Username: "u", Password: "secret-pw", Role: models.RoleStaff},
	}
	for _, req := range tests {
		_, err := h.CreateUser(ctx, req, "admin")
		assert.True(t, ledger.IsValidation(err), "request %+v", req)
	}
}

func TestAuthenticate(t *testing.T) {
	h, db, tokens := newUserHandler(t)
	ctx := context.Background()

	_, err := h.CreateUser(ctx, CreateUserRequest{
		Username: "director", Password: "secret-pw", Role: models.RoleDirector, FullName: "D",
	}, "admin")
	require.NoError(t, err)

	result, err := h.Authenticate(ctx, "director", "secret-pw")
	require.NoError(t, err)
	assert.NotNil(t, result.User.LastLogin)

	claims, err := tokens.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "DIRECTOR", claims.Role)
	assert.Equal(t, "director", claims.Username)

	var logins int64
	require.NoError(t, db.Model(&models.SystemLog{}).Where("action = ?", models.ActionLogin).Count(&logins).Error)
	assert.Equal(t, int64(1), logins)

	_, err = h.Authenticate(ctx, "director", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.Authenticate(ctx, "nobody", "secret-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	h, _, _ := newUserHandler(t)
	inactive := false

	_, err := h.CreateUser(context.Background(), CreateUserRequest{
		Username: "gone", Password: "secret-pw", Role: models.RoleStaff, FullName: "G", Active: &inactive,
	}, "admin")
	require.NoError(t, err)

	_, err = h.Authenticate(context.Background(), "gone", "secret-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteUserKeepsLastAdmin(t *testing.T) {
	h, _, _ := newUserHandler(t)
	ctx := context.Background()

	seed, err := h.SeedDefaults(ctx, "admin123")
	require.NoError(t, err)
	require.True(t, seed.AdminCreated)

	users, err := h.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	err = h.DeleteUser(ctx, users[0].ID, "admin")
	assert.True(t, ledger.IsConflict(err))

	second, err := h.CreateUser(ctx, CreateUserRequest{
		Username: "admin2", Password: "secret-pw", Role: models.RoleAdmin, FullName: "A2",
	}, "admin")
	require.NoError(t, err)
	require.NoError(t, h.DeleteUser(ctx, users[0].ID, "admin2"))

	_, err = h.GetUser(ctx, users[0].ID)
	assert.True(t, ledger.IsNotFound(err))
	assert.True(t, ledger.IsNotFound(h.DeleteUser(ctx, 999, "admin2")))

	_, err = h.GetUser(ctx, second.ID)
	assert.NoError(t, err)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	h, db, _ := newUserHandler(t)
	ctx := context.Background()

	first, err := h.SeedDefaults(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.True(t, first.WarehouseCreated)

	second, err := h.SeedDefaults(ctx, "admin123")
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.False(t, second.WarehouseCreated)

	var warehouses, logs int64
	require.NoError(t, db.Model(&models.Warehouse{}).Count(&warehouses).Error)
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&logs).Error)
	assert.Equal(t, int64(1), warehouses)
	assert.Equal(t, int64(1), logs)

	_, err = h.Authenticate(ctx, DefaultAdminUsername, "admin123")
	assert.NoError(t, err)
}
