package service

import (
	"aptitude_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireSubmitIsExclusive(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()

	release, err := guard.AcquireSubmit(ctx, "s1", 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, mr.TTL(submitLockPrefix+"s1"))

	_, err = guard.AcquireSubmit(ctx, "s1", 30*time.Second)
	require.ErrorIs(t, err, util.ErrSubmitInProgress)

	other, err := guard.AcquireSubmit(ctx, "s2", 30*time.Second)
	require.NoError(t, err)
	other()

	release()
	again, err := guard.AcquireSubmit(ctx, "s1", 30*time.Second)
	require.NoError(t, err)
	again()
}

func TestSubmitLockExpires(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()

	_, err := guard.AcquireSubmit(ctx, "s1", 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)
	_, err = guard.AcquireSubmit(ctx, "s1", 10*time.Second)
	require.NoError(t, err)
}

func TestExpiredSubmitLockReleaseKeepsNewHolder(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()

	stale, err := guard.AcquireSubmit(ctx, "s1", 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)
	current, err := guard.AcquireSubmit(ctx, "s1", 10*time.Second)
	require.NoError(t, err)

	stale()
	require.True(t, mr.Exists(submitLockPrefix+"s1"))
	_, err = guard.AcquireSubmit(ctx, "s1", 10*time.Second)
	require.ErrorIs(t, err, util.ErrSubmitInProgress)

	current()
	require.False(t, mr.Exists(submitLockPrefix+"s1"))
}

func TestAcquireStartWaitsForHolder(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	release, err := guard.AcquireStart(ctx, "stu", "test", time.Minute)
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		next, err := guard.AcquireStart(ctx, "stu", "test", time.Minute)
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("start lock acquired while held")
	case <-time.After(3 * startRetryInterval):
	}

	release()
	select {
	case next := <-acquired:
		next()
	case <-time.After(time.Second):
		t.Fatal("start lock not acquired after release")
	}
}

func TestAcquireStartGivesUpAfterTTL(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	release, err := guard.AcquireStart(ctx, "stu", "test", time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = guard.AcquireStart(ctx, "stu", "test", 3*startRetryInterval)
	require.ErrorIs(t, err, util.ErrSessionStarting)
}

func TestActiveSessionCache(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	_, ok, err := guard.ActiveSession(ctx, "stu", "test")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, guard.SetActiveSession(ctx, "stu", "test", "sess", time.Minute))
	id, ok, err := guard.ActiveSession(ctx, "stu", "test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sess", id)

	require.NoError(t, guard.ClearActiveSession(ctx, "stu", "test"))
	_, ok, err = guard.ActiveSession(ctx, "stu", "test")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshTokenConsumedOnce(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.StoreRefresh(ctx, "jti-1", "stu", time.Hour))

	id, err := guard.ConsumeRefresh(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, "stu", id)

	_, err = guard.ConsumeRefresh(ctx, "jti-1")
	require.ErrorIs(t, err, util.ErrInvalidToken)
}
