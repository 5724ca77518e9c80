package roles

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/bizhub/internal/platform/cache"
	"github.com/bizhub-io/bizhub/internal/shared"
)

func newCachedService(t *testing.T) (*Service, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	c := NewCache(cache.NewJSON(client, "roles", 60*time.Second), nil)
	return NewService(repo, c, nil), repo, mr
}

func TestGetIsServedFromCache(t *testing.T) {
	svc, repo, mr := newCachedService(t)
	ctx := context.Background()
	role, err := svc.Create(ctx, CreateInput{Name: Manager})
	require.NoError(t, err)

	_, err = svc.Get(ctx, role.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.callCount("FindByID"))
	require.True(t, mr.Exists("roles:id:"+role.ID.String()))

	mr.FastForward(61 * time.Second)
	require.False(t, mr.Exists("roles:id:"+role.ID.String()))
}

func TestMutationsInvalidateCache(t *testing.T) {
	svc, _, mr := newCachedService(t)
	ctx := context.Background()
	role, err := svc.Create(ctx, CreateInput{Name: Manager})
	require.NoError(t, err)

	_, err = svc.FindByName(ctx, Manager)
	require.NoError(t, err)
	_, err = svc.List(ctx, shared.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.True(t, mr.Exists("roles:name:Manager"))
	require.True(t, mr.Exists("roles:all:1:10"))

	perms := []Permission{PermCustomerChatReadWrite}
	_, err = svc.Update(ctx, role.ID, UpdateInput{Permissions: &perms})
	require.NoError(t, err)
	require.False(t, mr.Exists("roles:name:Manager"))
	require.False(t, mr.Exists("roles:all:1:10"))

	got, err := svc.FindByName(ctx, Manager)
	require.NoError(t, err)
	require.Equal(t, perms, got.Permissions)

	_, err = svc.Remove(ctx, role.ID)
	require.NoError(t, err)
	_, err = svc.FindByName(ctx, Manager)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCacheOutageFallsBackToRepository(t *testing.T) {
	svc, repo, mr := newCachedService(t)
	ctx := context.Background()
	role, err := svc.Create(ctx, CreateInput{Name: Admin})
	require.NoError(t, err)

	mr.Close()
	got, err := svc.Get(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, role.ID, got.ID)
	require.Equal(t, 1, repo.callCount("FindByID"))
}

// blockFirstLoad parks the first FindByID after it has read its row until
// release is closed.
func blockFirstLoad(repo *memoryRepo) (started <-chan struct{}, release chan struct{}) {
	startCh := make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	repo.setIDHook(func(ctx context.Context) error {
		first := false
		once.Do(func() {
			first = true
			close(startCh)
		})
		if !first {
			return nil
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return startCh, release
}

func TestSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	svc, repo, mr := newCachedService(t)
	role, err := svc.Create(context.Background(), CreateInput{Name: Manager})
	require.NoError(t, err)
	started, release := blockFirstLoad(repo)
	before := repo.callCount("FindByID")

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Get(firstCtx, role.ID)
		firstErr <- err
	}()
	<-started

	type result struct {
		role Role
		err  error
	}
	second := make(chan result, 1)
	go func() {
		got, err := svc.Get(context.Background(), role.ID)
		second <- result{got, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	require.Equal(t, role.ID, res.role.ID)
	require.Equal(t, before+1, repo.callCount("FindByID"))
	require.True(t, mr.Exists("roles:id:"+role.ID.String()))
}

func TestInFlightLoadDoesNotRestoreStaleEntry(t *testing.T) {
	svc, repo, mr := newCachedService(t)
	ctx := context.Background()
	role, err := svc.Create(ctx, CreateInput{Name: Manager})
	require.NoError(t, err)
	started, release := blockFirstLoad(repo)

	stale := make(chan Role, 1)
	go func() {
		got, _ := svc.Get(ctx, role.ID)
		stale <- got
	}()
	<-started

	perms := []Permission{PermCustomerChatReadWrite}
	_, err = svc.Update(ctx, role.ID, UpdateInput{Permissions: &perms})
	require.NoError(t, err)

	close(release)
	require.Equal(t, role.Permissions, (<-stale).Permissions)
	require.False(t, mr.Exists("roles:id:"+role.ID.String()))

	got, err := svc.Get(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, perms, got.Permissions)
}
