// Mutex
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "github.com/ko6/ko6/kerrno"

// Mutex is ko6's error-checking mutex: relocking by the owner fails,
// unlocking by a non-owner fails, waiters are FIFO.
type Mutex struct {
	sched *Scheduler
	owner int // 0 means free
	waitq []int
}

// NewMutex creates an unlocked mutex bound to s, registering it so
// process cleanup can drain it.
func (s *Scheduler) NewMutex() *Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &Mutex{sched: s}
	s.mutexes = append(s.mutexes, m)
	return m
}

// Lock acquires m, blocking FIFO if it is already held.
func (m *Mutex) Lock() error {
	s := m.sched
	s.mu.Lock()

	me := s.current
	if m.owner == me.Tid {
		s.mu.Unlock()
		return kerrno.New("mutex.Lock", kerrno.NotPermitted)
	}
	if m.owner == 0 {
		m.owner = me.Tid
		s.mu.Unlock()
		return nil
	}

	m.waitq = append(m.waitq, me.Tid)
	me2, next := s.blockSelfLocked()
	s.mu.Unlock()

	s.handoff(me2, next)

	s.mu.Lock()
	err := me.wakeErr
	s.mu.Unlock()
	return err
}

// Unlock releases m, handing ownership directly to the next FIFO waiter
// if any.
func (m *Mutex) Unlock() error {
	s := m.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.current
	if m.owner != me.Tid {
		return kerrno.New("mutex.Unlock", kerrno.NotPermitted)
	}

	if len(m.waitq) == 0 {
		m.owner = 0
		return nil
	}

	nextOwner := m.waitq[0]
	m.waitq = m.waitq[1:]
	m.owner = nextOwner

	s.wakeLocked(s.threads[nextOwner])
	return nil
}

// Destroy releases m's resources, failing Busy if it is currently
// locked.
func (m *Mutex) Destroy() error {
	s := m.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.owner != 0 {
		return kerrno.New("mutex.Destroy", kerrno.Busy)
	}
	m.removeFromRegistryLocked()
	return nil
}

func (m *Mutex) removeFromRegistryLocked() {
	s := m.sched
	for i, mm := range s.mutexes {
		if mm == m {
			s.mutexes = append(s.mutexes[:i], s.mutexes[i+1:]...)
			return
		}
	}
}

// Owner reports the tid currently holding m, or 0 if free.
func (m *Mutex) Owner() int {
	s := m.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.owner
}

// cleanupLocked drains m's wait queue, waking every blocked thread with
// a NotPermitted error, for process-exit cleanup. Must be called with
// s.mu held.
func (m *Mutex) cleanupLocked() {
	s := m.sched
	for _, tid := range m.waitq {
		t := s.threads[tid]
		if t == nil {
			continue
		}
		t.wakeErr = kerrno.New("mutex.cleanup", kerrno.NotPermitted)
		s.wakeLocked(t)
	}
	m.waitq = nil
	m.owner = 0
}
