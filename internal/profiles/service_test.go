package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grmc/storefront-backend/pkg/db/dbtest"
	"github.com/grmc/storefront-backend/pkg/db/models"
	"github.com/grmc/storefront-backend/pkg/enums"
	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
	"github.com/grmc/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := dbtest.Open(t, dbtest.Profiles)
	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(conn),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	require.NoError(t, err)
	return svc
}

func seed(t *testing.T, svc Service, id, name, email string, role enums.Role) {
	t.Helper()
	_, err := svc.Create(context.Background(), models.Profile{ID: id, FullName: name, Email: email, Role: role})
	require.NoError(t, err)
}

func TestCreateAndRoleOf(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "u1", " Huda ", "Huda@Example.com", "")

	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Huda", p.FullName)
	assert.Equal(t, "huda@example.com", p.Email)
	assert.Equal(t, enums.RoleUser, p.Role)

	role, err := svc.RoleOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleUser, role)

	role, err = svc.RoleOf(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListSearchesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "u1", "Ali", "ali@example.com", enums.RoleUser)
	seed(t, svc, "u2", "Maryam", "maryam@example.com", enums.RoleUser)
	seed(t, svc, "u3", "Alia", "x@example.com", enums.RoleAdmin)

	res, err := svc.List(ctx, "", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "u3", res.Items[0].ID)

	res, err = svc.List(ctx, "ali", pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, int64(2), res.Meta.Total)
}

func TestPromoteAndDemote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "admin", "Boss", "boss@example.com", enums.RoleAdmin)
	seed(t, svc, "u1", "Ali", "ali@example.com", enums.RoleUser)

	promoted, err := svc.PromoteByEmail(ctx, "ALI@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, promoted.Role)

	_, err = svc.PromoteByEmail(ctx, "ali@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = svc.PromoteByEmail(ctx, "ghost@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	require.NoError(t, svc.Demote(ctx, "admin", "u1"))
	role, err := svc.RoleOf(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleUser, role)

	err = svc.Demote(ctx, "admin", "admin")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestDeleteProtectsSelf(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "admin", "Boss", "boss@example.com", enums.RoleAdmin)
	seed(t, svc, "u1", "Ali", "ali@example.com", enums.RoleUser)

	err := svc.Delete(ctx, "admin", "admin")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, "admin", "u1"))
	err = svc.Delete(ctx, "admin", "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
