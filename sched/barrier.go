// Barrier
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "github.com/ko6/ko6/kerrno"

// Barrier is ko6's N-arrival rendezvous: the N-th arriver does not
// block, it releases the other N-1 and the next phase begins with
// arrived reset to 0.
type Barrier struct {
	sched   *Scheduler
	n       int
	arrived int
	waitq   []int
}

// NewBarrier creates a barrier requiring count arrivals per phase,
// registering it so process cleanup can drain it.
func (s *Scheduler) NewBarrier(count int) (*Barrier, error) {
	if count <= 0 {
		return nil, kerrno.New("sched.NewBarrier", kerrno.InvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &Barrier{sched: s, n: count}
	s.barriers = append(s.barriers, b)
	return b, nil
}

// Wait blocks the calling thread until N(B) threads have called Wait on
// this phase; the N-th caller instead releases the other N-1 and returns
// immediately.
func (b *Barrier) Wait() error {
	s := b.sched
	s.mu.Lock()

	b.arrived++
	if b.arrived == b.n {
		waiters := b.waitq
		b.waitq = nil
		b.arrived = 0
		for _, tid := range waiters {
			if t := s.threads[tid]; t != nil {
				s.wakeLocked(t)
			}
		}
		s.mu.Unlock()
		return nil
	}

	me := s.current
	b.waitq = append(b.waitq, me.Tid)
	me2, next := s.blockSelfLocked()
	s.mu.Unlock()

	s.handoff(me2, next)

	s.mu.Lock()
	err := me.wakeErr
	s.mu.Unlock()
	return err
}

// Reinit reinitializes the barrier for a new required count, failing
// Busy if any thread is currently waiting.
func (b *Barrier) Reinit(count int) error {
	s := b.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(b.waitq) > 0 {
		return kerrno.New("barrier.Reinit", kerrno.Busy)
	}
	if count <= 0 {
		return kerrno.New("barrier.Reinit", kerrno.InvalidArgument)
	}
	b.n = count
	b.arrived = 0
	return nil
}

// Destroy releases b, failing Busy if any thread is currently waiting.
func (b *Barrier) Destroy() error {
	s := b.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(b.waitq) > 0 {
		return kerrno.New("barrier.Destroy", kerrno.Busy)
	}
	b.removeFromRegistryLocked()
	return nil
}

func (b *Barrier) removeFromRegistryLocked() {
	s := b.sched
	for i, bb := range s.barriers {
		if bb == b {
			s.barriers = append(s.barriers[:i], s.barriers[i+1:]...)
			return
		}
	}
}

// cleanupLocked drains b's wait queue, waking every blocked thread with
// a NotPermitted error. Must be called with s.mu held.
func (b *Barrier) cleanupLocked() {
	s := b.sched
	for _, tid := range b.waitq {
		t := s.threads[tid]
		if t == nil {
			continue
		}
		t.wakeErr = kerrno.New("barrier.cleanup", kerrno.NotPermitted)
		s.wakeLocked(t)
	}
	b.waitq = nil
	b.arrived = 0
}
