// Block I/O cache
// https://github.com/ko6/ko6
//
// Copyright (c) The ko6 Authors.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package blockio implements ko6's block I/O cache: a logical cache of
// 4 KiB pages keyed by (bdev, lba), backed by kmem's page arena, with
// dirty write-back and reference-counted eviction.
//
// The cache is indexed by a plain Go map, the same map-backed lookup
// shape device.Registry uses for its byKey side index, so at most one
// live page ever exists per key.
package blockio

import (
	"sync"

	"github.com/ko6/ko6/device"
	"github.com/ko6/ko6/kerrno"
	"github.com/ko6/ko6/kmem"
)

// Key identifies a cached block uniquely.
type Key struct {
	Bdev uint32
	LBA  uint32
}

// Page is a live block-cache entry: a BLOCK-kind arena page whose
// descriptor's (bdev, lba) tuple is the cache key.
type Page struct {
	idx int
	key Key
	dev device.BlockOps
}

// Key reports the (bdev, lba) this page caches.
func (p *Page) Key() Key { return p.key }

// Bytes returns the page's 4 KiB payload.
func (p *Page) Bytes(arena *kmem.Arena) []byte { return arena.Page(p.idx) }

// Cache is ko6's block I/O cache.
type Cache struct {
	mu      sync.Mutex
	arena   *kmem.Arena
	byKey   map[Key]*Page
	devices map[uint32]device.BlockOps
}

// New creates a cache backed by arena, which is expected to also back
// the kernel's slab allocator: BLOCK pages share the same per-page
// descriptor array as SLAB pages.
func New(arena *kmem.Arena) *Cache {
	return &Cache{
		arena:   arena,
		byKey:   make(map[Key]*Page),
		devices: make(map[uint32]device.BlockOps),
	}
}

// RegisterDevice binds a block-device minor number to the driver Get
// and Release use to satisfy misses and write back dirty pages.
func (c *Cache) RegisterDevice(bdev uint32, dev device.BlockOps) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[bdev] = dev
}

// Get returns the cached page for (bdev, lba), incrementing its
// refcount. On a miss it allocates a fresh page, reads the block from
// the device synchronously, and marks it BLOCK+VALID. On read failure
// the page is released and Get returns the error.
func (c *Cache) Get(bdev, lba uint32) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key{Bdev: bdev, LBA: lba}
	if p, ok := c.byKey[key]; ok {
		c.arena.IncRefcount(p.idx)
		return p, nil
	}

	dev, ok := c.devices[bdev]
	if !ok {
		return nil, kerrno.New("blockio.Get", kerrno.NoSuchDevice)
	}

	idx, err := c.arena.AllocPage()
	if err != nil {
		return nil, err
	}
	c.arena.SetBlock(idx)
	c.arena.SetLBA(idx, bdev, lba)
	c.arena.IncRefcount(idx)

	buf := c.arena.Page(idx)
	if err := dev.Read(int64(lba), buf, device.BlockSize); err != nil {
		c.arena.DecRefcount(idx)
		c.arena.FreePage(idx)
		return nil, err
	}
	c.arena.SetValid(idx)

	p := &Page{idx: idx, key: key, dev: dev}
	c.byKey[key] = p
	return p, nil
}

// Release decrements p's refcount. A DIRTY page is synchronized once
// the refcount drops to its last holder or to zero; a page at refcount 0
// that is not LOCKED is evicted.
func (c *Cache) Release(p *Page) error {
	if p == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	refcount := c.arena.DecRefcount(p.idx)

	if refcount <= 1 && c.arena.IsDirty(p.idx) {
		if err := c.syncLocked(p); err != nil {
			return err
		}
	}

	if refcount == 0 && !c.arena.IsLock(p.idx) {
		delete(c.byKey, p.key)
		c.arena.FreePage(p.idx)
	}

	return nil
}

// Sync writes p back to its device if DIRTY, then clears DIRTY. A
// non-DIRTY or nil page is a no-op.
func (c *Cache) Sync(p *Page) error {
	if p == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.arena.IsDirty(p.idx) {
		return nil
	}
	return c.syncLocked(p)
}

func (c *Cache) syncLocked(p *Page) error {
	buf := c.arena.Page(p.idx)
	if err := p.dev.Write(int64(p.key.LBA), buf, device.BlockSize); err != nil {
		return err
	}
	c.arena.ClrDirty(p.idx)
	return nil
}

// Dirty marks p DIRTY, meaning its in-memory contents are newer than
// disk.
func (c *Cache) Dirty(p *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arena.SetDirty(p.idx)
}

// Lock marks p LOCKED, preventing eviction even at refcount 0.
func (c *Cache) Lock(p *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arena.SetLock(p.idx)
}

// Unlock clears p's LOCKED flag.
func (c *Cache) Unlock(p *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arena.ClrLock(p.idx)
}

// Flush synchronizes every DIRTY BLOCK page currently in the cache.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.byKey {
		if c.arena.IsDirty(p.idx) {
			if err := c.syncLocked(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Refcount reports p's current refcount, for tests and diagnostics.
func (c *Cache) Refcount(p *Page) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arena.GetRefcount(p.idx)
}
