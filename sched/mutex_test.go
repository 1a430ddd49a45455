package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMutexFIFO checks waiter ordering: T0 holds M, T1 then T2 block on
// Lock, T0 unlocks, T1 acquires and releases, then T2 acquires.
func TestMutexFIFO(t *testing.T) {
	s := newTestScheduler(t, 4)
	m := s.NewMutex()

	require.NoError(t, m.Lock()) // T0 (main) holds M

	var order []string
	_, err := s.Create(func(any) int {
		require.NoError(t, m.Lock())
		order = append(order, "T1")
		require.NoError(t, m.Unlock())
		return 0
	}, nil)
	require.NoError(t, err)

	_, err = s.Create(func(any) int {
		require.NoError(t, m.Lock())
		order = append(order, "T2")
		require.NoError(t, m.Unlock())
		return 0
	}, nil)
	require.NoError(t, err)

	// Let T1 and T2 run up to their blocking Lock call.
	s.Yield()

	require.NoError(t, m.Unlock())

	for i := 0; i < 10 && len(order) < 2; i++ {
		s.Yield()
	}

	require.Equal(t, []string{"T1", "T2"}, order)
}

func TestMutexRelockByOwnerFails(t *testing.T) {
	s := newTestScheduler(t, 2)
	m := s.NewMutex()

	require.NoError(t, m.Lock())
	require.Error(t, m.Lock())
}

func TestMutexUnlockByNonOwnerFails(t *testing.T) {
	s := newTestScheduler(t, 2)
	m := s.NewMutex()

	require.NoError(t, m.Lock())

	var unlockErr error
	_, err := s.Create(func(any) int {
		unlockErr = m.Unlock()
		return 0
	}, nil)
	require.NoError(t, err)

	s.Yield()
	require.Error(t, unlockErr)
}

func TestDestroyLockedMutexFails(t *testing.T) {
	s := newTestScheduler(t, 2)
	m := s.NewMutex()

	require.NoError(t, m.Lock())
	require.Error(t, m.Destroy())

	require.NoError(t, m.Unlock())
	require.NoError(t, m.Destroy())
}

func TestCleanupWakesBlockedWaitersWithNotPermitted(t *testing.T) {
	s := newTestScheduler(t, 2)
	m := s.NewMutex()

	require.NoError(t, m.Lock())

	var lockErr error
	_, err := s.Create(func(any) int {
		lockErr = m.Lock()
		return 0
	}, nil)
	require.NoError(t, err)

	s.Yield() // let the new thread block on Lock

	s.Cleanup()

	s.Yield() // let the cleaned-up thread observe its wake error

	require.Error(t, lockErr)
}
