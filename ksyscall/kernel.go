// Kernel syscall services
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ksyscall

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/ko6/ko6/cpu"
	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/klog"
	"github.com/ko6/ko6/sched"
	"github.com/ko6/ko6/tty"
	"github.com/ko6/ko6/umem"
)

// shellLogDepth bounds the KSHELL ring buffer.
const shellLogDepth = 16

// Kernel bundles the subsystems ko6's syscall services call into, and
// builds the Vector that dispatches to them.
type Kernel struct {
	Sched   *sched.Scheduler
	User    *UserSpace
	Heap    *umem.Heap
	Console *tty.Console
	DMA     device.DMAOps
	CPU     cpu.Primitives

	mu          sync.Mutex
	entries     map[int64]func(arg any) int
	mutexes     map[int64]*sched.Mutex
	nextMutex   int64
	barriers    map[int64]*sched.Barrier
	nextBarrier int64
	shellLog    []string
}

// NewKernel creates a Kernel with empty entry/mutex/barrier tables.
func NewKernel() *Kernel {
	return &Kernel{
		entries:  make(map[int64]func(arg any) int),
		mutexes:  make(map[int64]*sched.Mutex),
		barriers: make(map[int64]*sched.Barrier),
	}
}

// RegisterEntry binds a thread entry point to a stable id so
// THREAD_CREATE can select a Go function through the syscall ABI's
// integer argument, standing in for a real ELF entry-point address.
func (k *Kernel) RegisterEntry(id int64, fn func(arg any) int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[id] = fn
}

func (k *Kernel) fail(op string, errno kerrno.Errno) int64 {
	k.Sched.TLS().Errno = errno
	return int64(errno.Neg())
}

func (k *Kernel) failErr(err error) int64 {
	return k.fail("", kerrno.FromError(err))
}

// Vector builds the dispatch table wiring every recognized syscall
// number to this kernel's subsystems.
func (k *Kernel) Vector() *Vector {
	v := NewVector()

	v.Register(EXIT, k.sysExit)
	v.Register(READ, k.sysRead)
	v.Register(WRITE, k.sysWrite)
	v.Register(CLOCK, k.sysClock)
	v.Register(DMA_MEMCPY, k.sysDMAMemcpy)
	v.Register(CACHELINESIZE, k.sysCacheLineSize)
	v.Register(DCACHEBUFINVAL, k.sysCacheInvalidate)
	v.Register(DCACHEINVAL, k.sysCacheInvalidate)
	v.Register(SBRK, k.sysSbrk)
	v.Register(ERRNO, k.sysErrno)
	v.Register(THREAD_CREATE, k.sysThreadCreate)
	v.Register(THREAD_YIELD, k.sysThreadYield)
	v.Register(THREAD_EXIT, k.sysThreadExit)
	v.Register(SCHED_DUMP, k.sysSchedDump)
	v.Register(THREAD_JOIN, k.sysThreadJoin)
	v.Register(MUTEX_INIT, k.sysMutexInit)
	v.Register(MUTEX_LOCK, k.sysMutexLock)
	v.Register(MUTEX_UNLOCK, k.sysMutexUnlock)
	v.Register(MUTEX_DESTROY, k.sysMutexDestroy)
	v.Register(BARRIER_INIT, k.sysBarrierInit)
	v.Register(BARRIER_WAIT, k.sysBarrierWait)
	v.Register(BARRIER_DESTROY, k.sysBarrierDestroy)
	v.Register(KSHELL, k.sysKshell)

	return v
}

func (k *Kernel) sysExit(a Args) int64 {
	k.Sched.Cleanup()
	return 0
}

func (k *Kernel) sysRead(a Args) int64 {
	count := int(a.A2)
	buf, err := k.User.Translate(uintptr(a.A1), count)
	if err != nil {
		return k.failErr(err)
	}
	n, err := k.Console.Read(int(a.A0), buf, count)
	if err != nil {
		return k.failErr(err)
	}
	return int64(n)
}

func (k *Kernel) sysWrite(a Args) int64 {
	count := int(a.A2)
	buf, err := k.User.Translate(uintptr(a.A1), count)
	if err != nil {
		return k.failErr(err)
	}
	n, err := k.Console.Write(int(a.A0), buf, count)
	if err != nil {
		return k.failErr(err)
	}
	return int64(n)
}

func (k *Kernel) sysClock(a Args) int64 {
	return k.CPU.Cycles()
}

func (k *Kernel) sysDMAMemcpy(a Args) int64 {
	n := int(a.A2)
	dst, err := k.User.Translate(uintptr(a.A0), n)
	if err != nil {
		return k.failErr(err)
	}
	src, err := k.User.Translate(uintptr(a.A1), n)
	if err != nil {
		return k.failErr(err)
	}
	if err := k.DMA.Memcpy(dst, src, n); err != nil {
		return k.failErr(err)
	}
	return 0
}

// cacheLineSize is the cache-line alignment constant every kernel
// component (umem.Heap included) aligns against.
const cacheLineSize = 64

func (k *Kernel) sysCacheLineSize(a Args) int64 {
	return cacheLineSize
}

func (k *Kernel) sysCacheInvalidate(a Args) int64 {
	k.CPU.CacheInvalidateData()
	return 0
}

func (k *Kernel) sysSbrk(a Args) int64 {
	prev, err := k.Heap.Sbrk(int(a.A0))
	if err != nil {
		return k.failErr(err)
	}
	return int64(prev)
}

// ERRNO reports the address of the calling thread's errno slot, the
// same way a real ko6 user process would read it back after a failed
// syscall.
func (k *Kernel) sysErrno(a Args) int64 {
	tls := k.Sched.TLS()
	return int64(uintptr(unsafe.Pointer(&tls.Errno)))
}

func (k *Kernel) sysThreadCreate(a Args) int64 {
	k.mu.Lock()
	fn, ok := k.entries[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("thread_create", kerrno.InvalidArgument)
	}

	tid, err := k.Sched.Create(fn, a.A1)
	if err != nil {
		return k.failErr(err)
	}
	return int64(tid)
}

func (k *Kernel) sysThreadYield(a Args) int64 {
	k.Sched.Yield()
	return 0
}

func (k *Kernel) sysThreadExit(a Args) int64 {
	k.Sched.Exit(int(a.A0))
	return 0 // unreachable: Exit terminates the calling goroutine
}

func (k *Kernel) sysSchedDump(a Args) int64 {
	dump := k.Sched.Dump()
	for _, th := range dump {
		klog.Printf("tid=%d state=%s", th.Tid, th.State)
	}
	return int64(len(dump))
}

func (k *Kernel) sysThreadJoin(a Args) int64 {
	outBuf, err := k.User.Translate(uintptr(a.A1), 8)
	if err != nil {
		return k.failErr(err)
	}

	var out int
	if err := k.Sched.Join(int(a.A0), &out); err != nil {
		return k.failErr(err)
	}

	binary.LittleEndian.PutUint64(outBuf, uint64(int64(out)))
	return 0
}

func (k *Kernel) sysMutexInit(a Args) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	id := k.nextMutex
	k.nextMutex++
	k.mutexes[id] = k.Sched.NewMutex()
	return id
}

func (k *Kernel) sysMutexLock(a Args) int64 {
	k.mu.Lock()
	m, ok := k.mutexes[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("mutex_lock", kerrno.BadDescriptor)
	}
	if err := m.Lock(); err != nil {
		return k.failErr(err)
	}
	return 0
}

func (k *Kernel) sysMutexUnlock(a Args) int64 {
	k.mu.Lock()
	m, ok := k.mutexes[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("mutex_unlock", kerrno.BadDescriptor)
	}
	if err := m.Unlock(); err != nil {
		return k.failErr(err)
	}
	return 0
}

func (k *Kernel) sysMutexDestroy(a Args) int64 {
	k.mu.Lock()
	m, ok := k.mutexes[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("mutex_destroy", kerrno.BadDescriptor)
	}
	if err := m.Destroy(); err != nil {
		return k.failErr(err)
	}
	k.mu.Lock()
	delete(k.mutexes, a.A0)
	k.mu.Unlock()
	return 0
}

func (k *Kernel) sysBarrierInit(a Args) int64 {
	b, err := k.Sched.NewBarrier(int(a.A0))
	if err != nil {
		return k.failErr(err)
	}

	k.mu.Lock()
	id := k.nextBarrier
	k.nextBarrier++
	k.barriers[id] = b
	k.mu.Unlock()
	return id
}

func (k *Kernel) sysBarrierWait(a Args) int64 {
	k.mu.Lock()
	b, ok := k.barriers[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("barrier_wait", kerrno.BadDescriptor)
	}
	if err := b.Wait(); err != nil {
		return k.failErr(err)
	}
	return 0
}

func (k *Kernel) sysBarrierDestroy(a Args) int64 {
	k.mu.Lock()
	b, ok := k.barriers[a.A0]
	k.mu.Unlock()
	if !ok {
		return k.fail("barrier_destroy", kerrno.BadDescriptor)
	}
	if err := b.Destroy(); err != nil {
		return k.failErr(err)
	}
	k.mu.Lock()
	delete(k.barriers, a.A0)
	k.mu.Unlock()
	return 0
}

// sysKshell records the command line into a fixed-depth ring buffer.
// TODO: dispatch to the interactive shell once one exists.
func (k *Kernel) sysKshell(a Args) int64 {
	buf, err := k.User.Translate(uintptr(a.A0), int(a.A1))
	if err != nil {
		return k.failErr(err)
	}

	k.mu.Lock()
	k.shellLog = append(k.shellLog, string(buf))
	if len(k.shellLog) > shellLogDepth {
		k.shellLog = k.shellLog[len(k.shellLog)-shellLogDepth:]
	}
	k.mu.Unlock()
	return 0
}

// ShellLog returns the most recent KSHELL command lines, newest last.
func (k *Kernel) ShellLog() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, len(k.shellLog))
	copy(out, k.shellLog)
	return out
}
