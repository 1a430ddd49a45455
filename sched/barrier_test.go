package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBarrierOfThree runs three threads that record a, b, c respectively
// then wait; every complete phase contains exactly one of each, and no
// thread starts its next phase before all three have arrived.
func TestBarrierOfThree(t *testing.T) {
	s := newTestScheduler(t, 4)
	b, err := s.NewBarrier(3)
	require.NoError(t, err)

	var phase1, phase2 []string
	worker := func(label string) func(any) int {
		return func(any) int {
			phase1 = append(phase1, label)
			require.NoError(t, b.Wait())
			phase2 = append(phase2, label)
			require.NoError(t, b.Wait())
			return 0
		}
	}

	tidA, err := s.Create(worker("a"), nil)
	require.NoError(t, err)
	tidB, err := s.Create(worker("b"), nil)
	require.NoError(t, err)
	tidC, err := s.Create(worker("c"), nil)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		s.Yield()
	}

	require.ElementsMatch(t, []string{"a", "b", "c"}, phase1)
	require.ElementsMatch(t, []string{"a", "b", "c"}, phase2)

	var out int
	require.NoError(t, s.Join(tidA, &out))
	require.NoError(t, s.Join(tidB, &out))
	require.NoError(t, s.Join(tidC, &out))
}

func TestBarrierReinitWithWaitersFails(t *testing.T) {
	s := newTestScheduler(t, 2)
	b, err := s.NewBarrier(2)
	require.NoError(t, err)

	_, err = s.Create(func(any) int {
		require.NoError(t, b.Wait())
		return 0
	}, nil)
	require.NoError(t, err)

	s.Yield() // child blocks in Wait, required count not yet reached

	require.Error(t, b.Reinit(3))
}

func TestBarrierDestroyWithWaitersFails(t *testing.T) {
	s := newTestScheduler(t, 2)
	b, err := s.NewBarrier(2)
	require.NoError(t, err)

	_, err = s.Create(func(any) int {
		require.NoError(t, b.Wait())
		return 0
	}, nil)
	require.NoError(t, err)

	s.Yield()

	require.Error(t, b.Destroy())
}
