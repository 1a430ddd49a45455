// Thread scheduler
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sched implements ko6's single-CPU cooperative-preemptive
// thread scheduler plus its mutex and barrier synchronization
// primitives.
//
// There is no real assembly context switch on a hosted Go build, so each
// thread is backed by one goroutine parked on a private channel; the
// scheduler hands off execution by signalling exactly one thread's
// channel at a time, which preserves the single-RUNNING-thread invariant
// and FIFO dispatch order without needing inline assembly.
package sched

import (
	"container/list"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/umem"
)

// State is a thread's position in the scheduler's state machine.
type State int

const (
	Created State = iota
	Ready
	Running
	Waiting
	Zombie
	Dead
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Waiting:
		return "WAITING"
	case Zombie:
		return "ZOMBIE"
	case Dead:
		return "DEAD"
	default:
		return "?"
	}
}

// TLS is the per-thread block: errno and a PRNG seed, reachable through
// the current-thread pointer rather than process-wide global state.
type TLS struct {
	Errno kerrno.Errno
	Seed  uint64
}

// Thread is ko6's unit of execution.
type Thread struct {
	Tid   int
	State State
	TLS   TLS

	ctx cpu.Context

	stackIdx    int
	stackTop    uintptr
	stackBottom uintptr

	exitValue int

	joinWaiters []int
	joinResult  int

	// wakeErr, when non-nil, is delivered to whichever blocking call
	// (Lock/Wait/Join) wakes this thread, so process cleanup can wake
	// waiters with "operation not permitted".
	wakeErr error

	resume chan struct{}
}

// Scheduler is ko6's single-CPU thread scheduler. The zero value is not
// usable; use New.
type Scheduler struct {
	mu sync.Mutex

	cpu    cpu.Primitives
	stacks *umem.StackAllocator

	threads map[int]*Thread
	ready   *list.List // of tid, FIFO

	current *Thread
	nextTid int

	main *Thread

	mutexes  []*Mutex
	barriers []*Barrier
}

// New creates a scheduler bound to the given CPU primitives and user
// stack allocator, with a main thread (tid 1) already RUNNING. The main
// thread is distinguished by never being reaped.
func New(c cpu.Primitives, stacks *umem.StackAllocator) *Scheduler {
	main := &Thread{Tid: 1, State: Running, resume: make(chan struct{})}

	s := &Scheduler{
		cpu:     c,
		stacks:  stacks,
		threads: map[int]*Thread{1: main},
		ready:   list.New(),
		current: main,
		nextTid: 2,
		main:    main,
	}
	return s
}

// MainTid returns the main thread's tid.
func (s *Scheduler) MainTid() int { return s.main.Tid }

// Current returns the tid of the currently RUNNING thread.
func (s *Scheduler) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Tid
}

// TLS returns a pointer to the currently running thread's TLS block, the
// backing store for the ERRNO syscall.
func (s *Scheduler) TLS() *TLS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &s.current.TLS
}

func stackBounds(stack []byte) (top, bottom uintptr) {
	if len(stack) == 0 {
		return 0, 0
	}
	bottom = uintptr(unsafe.Pointer(&stack[0]))
	top = bottom + uintptr(len(stack))
	return top, bottom
}

// Create allocates a context and a fixed 16-page user stack, initializes
// the thread's entry point via the CPU's bootstrap shim, and enqueues it
// READY. fn runs on its own goroutine once dispatched;
// when fn returns, the thread exits with fn's return value as if via the
// bootstrap shim's "on return, calls exit".
func (s *Scheduler) Create(fn func(arg any) int, arg any) (int, error) {
	stack, idx, err := s.stacks.MallocUstack()
	if err != nil {
		return 0, kerrno.New("sched.Create", kerrno.OutOfMemory)
	}
	top, bottom := stackBounds(stack)

	s.mu.Lock()
	tid := s.nextTid
	s.nextTid++

	t := &Thread{
		Tid:         tid,
		State:       Ready,
		stackIdx:    idx,
		stackTop:    top,
		stackBottom: bottom,
		resume:      make(chan struct{}),
	}

	if s.cpu != nil {
		ctx := s.cpu.NewContext()
		s.cpu.ContextInit(ctx, 0, top)
		t.ctx = ctx
	}

	s.threads[tid] = t
	s.ready.PushBack(tid)
	s.mu.Unlock()

	go func() {
		<-t.resume
		retval := fn(arg)
		s.Exit(retval)
	}()

	return tid, nil
}

// popReadyLocked removes and returns the head of the ready queue, or
// false if the queue is empty.
func (s *Scheduler) popReadyLocked() (*Thread, bool) {
	e := s.ready.Front()
	if e == nil {
		return nil, false
	}
	s.ready.Remove(e)
	tid := e.Value.(int)
	return s.threads[tid], true
}

func (s *Scheduler) wakeLocked(t *Thread) {
	t.State = Ready
	s.ready.PushBack(t.Tid)
}

// dispatchLocked picks the next READY thread and makes it current,
// panicking if none is available: ko6 always keeps at least the main
// thread runnable, so an empty ready queue is an unmet invariant.
func (s *Scheduler) dispatchLocked() *Thread {
	next, ok := s.popReadyLocked()
	if !ok {
		panic("sched: no READY thread to dispatch")
	}
	next.State = Running
	s.current = next
	return next
}

// handoff performs the actual goroutine switch outside the scheduler
// lock: signal next to run, then block until this thread is resumed.
func (s *Scheduler) handoff(me, next *Thread) {
	if next == me {
		return
	}
	next.resume <- struct{}{}
	<-me.resume
}

// Yield moves the calling thread to the tail of the READY queue and
// dispatches the head.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	me := s.current
	me.State = Ready
	s.ready.PushBack(me.Tid)
	next := s.dispatchLocked()
	s.mu.Unlock()

	s.handoff(me, next)
}

// blockSelfLocked transitions the current thread to WAITING and
// dispatches the next READY thread, returning both so the caller can
// hand off execution outside the lock. Must be called with s.mu held;
// returns with the lock still held, for the caller to unlock once its
// own bookkeeping (wait queue insertion) is complete.
func (s *Scheduler) blockSelfLocked() (me, next *Thread) {
	me = s.current
	me.State = Waiting
	me.wakeErr = nil
	next = s.dispatchLocked()
	return me, next
}

// Exit transitions the calling thread to ZOMBIE, stores retval, wakes a
// joiner if any, and terminates the calling goroutine. It never returns.
func (s *Scheduler) Exit(retval int) {
	s.mu.Lock()
	me := s.current
	me.State = Zombie
	me.exitValue = retval

	if len(me.joinWaiters) > 0 {
		joinerTid := me.joinWaiters[0]
		me.joinWaiters = me.joinWaiters[1:]
		joiner := s.threads[joinerTid]

		joiner.joinResult = retval

		me.State = Dead
		s.freeThreadLocked(me)
		s.wakeLocked(joiner)
	}

	next := s.dispatchLocked()
	s.mu.Unlock()

	if next != me {
		next.resume <- struct{}{}
	}
	runtime.Goexit()
}

func (s *Scheduler) freeThreadLocked(t *Thread) {
	delete(s.threads, t.Tid)
	if t != s.main {
		s.stacks.FreeUstack(t.stackIdx)
	}
}

// Join blocks until tid is ZOMBIE or DEAD. Consuming a ZOMBIE transitions
// it to DEAD and frees its stack; *out receives its exit value.
func (s *Scheduler) Join(tid int, out *int) error {
	s.mu.Lock()
	target, ok := s.threads[tid]
	if !ok {
		s.mu.Unlock()
		return kerrno.New("sched.Join", kerrno.NoSuchThread)
	}

	if target.State == Zombie {
		*out = target.exitValue
		target.State = Dead
		s.freeThreadLocked(target)
		s.mu.Unlock()
		return nil
	}

	me := s.current
	target.joinWaiters = append(target.joinWaiters, me.Tid)

	me2, next := s.blockSelfLocked()
	s.mu.Unlock()

	s.handoff(me2, next)

	s.mu.Lock()
	err := me.wakeErr
	if err == nil {
		*out = me.joinResult
	}
	s.mu.Unlock()

	return err
}

// Cleanup destroys every mutex and barrier still registered with s and
// drains their wait queues with a "not permitted" wakeup. It runs on
// process exit.
func (s *Scheduler) Cleanup() {
	s.mu.Lock()
	mutexes := s.mutexes
	barriers := s.barriers
	s.mutexes = nil
	s.barriers = nil

	for _, m := range mutexes {
		m.cleanupLocked()
	}
	for _, b := range barriers {
		b.cleanupLocked()
	}
	s.mu.Unlock()
}

// ThreadInfo is one row of Dump's enumeration.
type ThreadInfo struct {
	Tid   int
	State State
}

// Dump enumerates every known thread and its state.
func (s *Scheduler) Dump() []ThreadInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ThreadInfo, 0, len(s.threads))
	for tid, t := range s.threads {
		out = append(out, ThreadInfo{Tid: tid, State: t.State})
	}
	// stable order for deterministic test/diagnostic output
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Tid < out[j-1].Tid; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
