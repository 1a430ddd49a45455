package ksyscall

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ko6/ko6/cpu/arm"
	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/sched"
	"github.com/ko6/ko6/tty"
	"github.com/ko6/ko6/umem"
)

func newTestKernel(t *testing.T, nstacks int) *Kernel {
	t.Helper()
	stacks, err := umem.NewStackAllocator(nstacks)
	require.NoError(t, err)

	c := arm.New()
	s := sched.New(c, stacks)

	ttyDev := &device.SoclibTTY{}
	require.NoError(t, ttyDev.Init(0, 115200))

	k := NewKernel()
	k.Sched = s
	k.CPU = c
	k.Console = tty.NewConsole(ttyDev)
	k.DMA = device.NewGenericDMA(c)
	k.Heap = umem.NewHeap(0x1000, 0x2000)
	k.User = NewUserSpace()
	return k
}

func TestWriteThenReadRoundTripsThroughConsole(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	wbuf := []byte("hi\n")
	k.User.AddRegion(wbuf)

	ret := v.Dispatch(WRITE, Args{A0: 1, A1: int64(Addr(wbuf)), A2: int64(len(wbuf))})
	require.Equal(t, int64(len(wbuf)), ret)

	ttyDev := k.Console.Dev.(*device.SoclibTTY)
	require.True(t, ttyDev.Push('x'))

	rbuf := make([]byte, 1)
	k.User.AddRegion(rbuf)
	ret = v.Dispatch(READ, Args{A0: 0, A1: int64(Addr(rbuf)), A2: 1})
	require.Equal(t, int64(1), ret)
	require.Equal(t, byte('x'), rbuf[0])
}

func TestReadFromBadDescriptorFails(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	// A valid user buffer, so the call gets past bounds checking and
	// fails on the unbound descriptor itself.
	buf := make([]byte, 1)
	k.User.AddRegion(buf)

	ret := v.Dispatch(READ, Args{A0: 7, A1: int64(Addr(buf)), A2: 1})
	require.Less(t, ret, int64(0))
	require.Equal(t, int64(kerrno.BadDescriptor.Neg()), ret)
}

func TestSbrkGrowsAndReportsPreviousBreak(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	ret := v.Dispatch(SBRK, Args{A0: 128})
	require.Equal(t, int64(0x1000), ret)

	ret2 := v.Dispatch(SBRK, Args{A0: 0})
	require.Equal(t, int64(0x1000+128), ret2)
}

func TestThreadCreateYieldJoin(t *testing.T) {
	k := newTestKernel(t, 2)
	v := k.Vector()

	done := make(chan struct{})
	k.RegisterEntry(1, func(arg any) int {
		close(done)
		return 42
	})

	ret := v.Dispatch(THREAD_CREATE, Args{A0: 1})
	require.GreaterOrEqual(t, ret, int64(2))
	tid := ret

	outBuf := make([]byte, 8)
	k.User.AddRegion(outBuf)

	v.Dispatch(THREAD_YIELD, Args{})
	<-done

	joinRet := v.Dispatch(THREAD_JOIN, Args{A0: tid, A1: int64(Addr(outBuf))})
	require.Equal(t, int64(0), joinRet)
	require.Equal(t, int64(42), int64(binary.LittleEndian.Uint64(outBuf)))
}

func TestThreadCreateUnknownEntryFails(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	ret := v.Dispatch(THREAD_CREATE, Args{A0: 99})
	require.Less(t, ret, int64(0))
}

func TestMutexLifecycle(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	id := v.Dispatch(MUTEX_INIT, Args{})
	require.GreaterOrEqual(t, id, int64(0))

	require.Equal(t, int64(0), v.Dispatch(MUTEX_LOCK, Args{A0: id}))
	require.Equal(t, int64(0), v.Dispatch(MUTEX_UNLOCK, Args{A0: id}))
	require.Equal(t, int64(0), v.Dispatch(MUTEX_DESTROY, Args{A0: id}))

	// destroyed handle is gone
	require.Less(t, v.Dispatch(MUTEX_LOCK, Args{A0: id}), int64(0))
}

func TestBarrierLifecycle(t *testing.T) {
	k := newTestKernel(t, 2)
	v := k.Vector()

	id := v.Dispatch(BARRIER_INIT, Args{A0: 1})
	require.GreaterOrEqual(t, id, int64(0))

	require.Equal(t, int64(0), v.Dispatch(BARRIER_WAIT, Args{A0: id}))
	require.Equal(t, int64(0), v.Dispatch(BARRIER_DESTROY, Args{A0: id}))
}

func TestUnknownSyscallReturnsNotImplemented(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	ret := v.Dispatch(Num(numSyscalls), Args{})
	require.Less(t, ret, int64(0))
}

func TestKshellRecordsCommandLine(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	cmd := []byte("ls")
	k.User.AddRegion(cmd)

	ret := v.Dispatch(KSHELL, Args{A0: int64(Addr(cmd)), A1: int64(len(cmd))})
	require.Equal(t, int64(0), ret)
	require.Equal(t, []string{"ls"}, k.ShellLog())
}

func TestClockAndCacheLineSize(t *testing.T) {
	k := newTestKernel(t, 1)
	v := k.Vector()

	require.Equal(t, int64(64), v.Dispatch(CACHELINESIZE, Args{}))
	require.Equal(t, int64(0), v.Dispatch(DCACHEINVAL, Args{}))
	_ = v.Dispatch(CLOCK, Args{})
}
