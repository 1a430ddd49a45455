package blockio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kmem"
)

func newTestCache(t *testing.T, pages int) (*Cache, *device.RAMBlockDevice) {
	t.Helper()
	arena, err := kmem.NewArena(pages)
	require.NoError(t, err)

	dev := device.NewRAMBlockDevice(32)
	require.NoError(t, dev.Init(0, 0, device.BlockSize))

	c := New(arena)
	c.RegisterDevice(0, dev)
	return c, dev
}

// TestBlockCacheCoherency writes a pattern through the cache, re-reads
// it across a release, then flushes and checks the raw device.
func TestBlockCacheCoherency(t *testing.T) {
	c, dev := newTestCache(t, 8)

	p, err := c.Get(0, 5)
	require.NoError(t, err)

	pattern := bytes.Repeat([]byte{0xAB}, device.BlockSize)
	copy(p.Bytes(c.arena), pattern)

	c.Dirty(p)
	require.NoError(t, c.Release(p))

	p2, err := c.Get(0, 5)
	require.NoError(t, err)
	require.Equal(t, pattern, p2.Bytes(c.arena))
	require.NoError(t, c.Release(p2))

	require.NoError(t, c.Flush())

	raw := make([]byte, device.BlockSize)
	require.NoError(t, dev.Read(5, raw, device.BlockSize))
	require.Equal(t, pattern, raw)
}

func TestGetReturnsSamePageForSameKey(t *testing.T) {
	c, _ := newTestCache(t, 8)

	p1, err := c.Get(0, 1)
	require.NoError(t, err)
	p2, err := c.Get(0, 1)
	require.NoError(t, err)

	require.Same(t, p1, p2)
	require.Equal(t, 2, c.Refcount(p1))

	require.NoError(t, c.Release(p1))
	require.NoError(t, c.Release(p2))
}

func TestReleaseSyncsBeforeRefcountDropsToOne(t *testing.T) {
	c, dev := newTestCache(t, 8)

	p1, err := c.Get(0, 2)
	require.NoError(t, err)
	p2, err := c.Get(0, 2)
	require.NoError(t, err)

	pattern := bytes.Repeat([]byte{0x5A}, device.BlockSize)
	copy(c.arena.Page(p1.idx), pattern)
	c.Dirty(p1)

	require.NoError(t, c.Release(p1)) // refcount drops 2->1, DIRTY: must sync

	raw := make([]byte, device.BlockSize)
	require.NoError(t, dev.Read(2, raw, device.BlockSize))
	require.Equal(t, pattern, raw)

	require.NoError(t, c.Release(p2))
}

func TestSyncIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t, 8)

	p, err := c.Get(0, 3)
	require.NoError(t, err)

	copy(c.arena.Page(p.idx), bytes.Repeat([]byte{1}, device.BlockSize))
	c.Dirty(p)

	require.NoError(t, c.Sync(p))
	require.NoError(t, c.Sync(p)) // second sync on a now-clean page is a no-op

	require.NoError(t, c.Release(p))
}

func TestLockedPageSurvivesZeroRefcount(t *testing.T) {
	c, _ := newTestCache(t, 8)

	p, err := c.Get(0, 4)
	require.NoError(t, err)
	c.Lock(p)

	require.NoError(t, c.Release(p))

	p2, err := c.Get(0, 4)
	require.NoError(t, err)
	require.Same(t, p, p2)

	c.Unlock(p2)
	require.NoError(t, c.Release(p2))
}

func TestFlushSyncsEveryDirtyPage(t *testing.T) {
	c, dev := newTestCache(t, 8)

	p1, _ := c.Get(0, 10)
	p2, _ := c.Get(0, 11)

	copy(c.arena.Page(p1.idx), bytes.Repeat([]byte{0x11}, device.BlockSize))
	copy(c.arena.Page(p2.idx), bytes.Repeat([]byte{0x22}, device.BlockSize))
	c.Dirty(p1)
	c.Dirty(p2)

	require.NoError(t, c.Flush())

	raw := make([]byte, device.BlockSize)
	dev.Read(10, raw, device.BlockSize)
	require.Equal(t, bytes.Repeat([]byte{0x11}, device.BlockSize), raw)
	dev.Read(11, raw, device.BlockSize)
	require.Equal(t, bytes.Repeat([]byte{0x22}, device.BlockSize), raw)

	require.NoError(t, c.Release(p1))
	require.NoError(t, c.Release(p2))
}

func TestGetUnknownDeviceFails(t *testing.T) {
	c, _ := newTestCache(t, 4)
	_, err := c.Get(99, 0)
	require.Error(t, err)
}
