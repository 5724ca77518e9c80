package roles

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/bizhub/internal/shared"
)

func TestCreateAdminWithoutPermissionsUsesDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	role, err := svc.Create(context.Background(), CreateInput{Name: Admin, Permissions: []Permission{}})
	require.NoError(t, err)
	require.Equal(t, DefaultPermissions(Admin), role.Permissions)
	require.Len(t, role.Permissions, 5)
	require.NotEqual(t, uuid.Nil, role.ID)
}

func TestCreateExplicitPermissionsAreNotMerged(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	role, err := svc.Create(context.Background(), CreateInput{Name: Admin, Permissions: []Permission{PermCustomerChatReadWrite}})
	require.NoError(t, err)
	require.Equal(t, []Permission{PermCustomerChatReadWrite}, role.Permissions)
}

func TestCreateRejectsUnknownValues(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), CreateInput{Name: "Owner"})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateInput{Name: Admin, Permissions: []Permission{"nope"}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Name: Manager})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: Manager})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "role with name 'Manager' already exists")
}

func TestCreateWithExistingIDConflicts(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	admin, err := svc.Create(ctx, CreateInput{Name: Admin})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{ID: admin.ID, Name: Manager})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "role with id "+admin.ID.String()+" already exists")

	got, err := svc.FindByName(ctx, Admin)
	require.NoError(t, err)
	require.Equal(t, admin.ID, got.ID)
	require.Equal(t, admin.Permissions, got.Permissions)
	_, err = svc.FindByName(ctx, Manager)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	repo := newMemoryRepo()
	var barrier sync.WaitGroup
	barrier.Add(2)
	// Both callers pass the pre-check before either writes.
	repo.findHook = func(Name) error {
		barrier.Done()
		barrier.Wait()
		return nil
	}
	svc := NewService(repo, nil, nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateInput{Name: Manager})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrConflict):
			conflicts++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, conflicts)
	require.Equal(t, 2, repo.callCount("Create"))
}

func TestUpdateRules(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	admin, err := svc.Create(ctx, CreateInput{Name: Admin})
	require.NoError(t, err)
	manager, err := svc.Create(ctx, CreateInput{Name: Manager})
	require.NoError(t, err)

	empty := []Permission{}
	_, err = svc.Update(ctx, manager.ID, UpdateInput{Permissions: &empty})
	require.ErrorIs(t, err, shared.ErrValidation)

	rename := Admin
	_, err = svc.Update(ctx, manager.ID, UpdateInput{Name: &rename})
	require.ErrorIs(t, err, shared.ErrConflict)

	same := Admin
	perms := []Permission{PermUserRoleManagement}
	updated, err := svc.Update(ctx, admin.ID, UpdateInput{Name: &same, Permissions: &perms})
	require.NoError(t, err)
	require.Equal(t, perms, updated.Permissions)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveAndRestore(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	role, err := svc.Create(ctx, CreateInput{Name: Assistant})
	require.NoError(t, err)

	live, err := svc.Restore(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, role, live)

	deleted, err := svc.Remove(ctx, role.ID)
	require.NoError(t, err)
	require.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)

	_, err = svc.Get(ctx, role.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Remove(ctx, role.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// The name is free again once the holder is deleted.
	replacement, err := svc.Create(ctx, CreateInput{Name: Assistant})
	require.NoError(t, err)
	_, err = svc.Restore(ctx, role.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Remove(ctx, replacement.ID)
	require.NoError(t, err)
	restored, err := svc.Restore(ctx, role.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)
}

func TestListPaginates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	for _, name := range Names() {
		_, err := svc.Create(ctx, CreateInput{Name: name})
		require.NoError(t, err)
	}
	res, err := svc.List(ctx, shared.Page{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 1)

	res, err = svc.List(ctx, shared.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
}
