// Package pool implements the fixed-capacity memory pools that back queue
// messages. A pool reserves its arena once and never grows. Two policies
// exist: a heap carving variable-sized blocks first-fit out of the arena, and
// an array of equally sized blocks.
//
// Pools perform no locking. The owning queue serialises every call.
package pool

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Alignment is the granularity of every heap allocation.
const Alignment = 8

var (
	// ErrNoSpace is returned by Alloc when no free extent can hold the request.
	ErrNoSpace = errors.New("pool: no space left")
	// ErrInvalid is returned by Free for blocks that are not live allocations
	// of the pool.
	ErrInvalid = errors.New("pool: invalid block")
	// ErrSize is returned for negative or zero sizes where they make no sense.
	ErrSize = errors.New("pool: invalid size")
)

// Block identifies one allocation. The generation makes a block handle
// stale once it is freed, even if the same offset is handed out again.
type Block struct {
	off  int
	size int
	gen  uint64
}

// Size returns the number of bytes reserved for the block, alignment included.
func (b Block) Size() int { return b.size }

type extent struct {
	off  int
	size int
}

type allocation struct {
	size int
	gen  uint64
}

// Pool is a non-resizable arena. The zero value is not usable; construct
// one with New or NewArray.
type Pool struct {
	name      string
	arena     []byte
	blockSize int
	free      []extent
	live      map[int]allocation
	used      int
	gen       uint64
}

// New reserves a heap pool of capacity bytes. Capacity is rounded down to
// Alignment.
func New(name string, capacity int) (*Pool, error) {
	usable := capacity / Alignment * Alignment
	if usable <= 0 {
		return nil, fmt.Errorf("%w: heap capacity %d", ErrSize, capacity)
	}
	return &Pool{
		name:  name,
		arena: make([]byte, usable),
		free:  []extent{{off: 0, size: usable}},
		live:  make(map[int]allocation),
	}, nil
}

// NewArray reserves count blocks of blockSize bytes each. Requests larger
// than blockSize always fail.
func NewArray(name string, blockSize, count int) (*Pool, error) {
	if blockSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("%w: %d blocks of %d bytes", ErrSize, count, blockSize)
	}
	blockSize = alignUp(blockSize, Alignment)
	p := &Pool{
		name:      name,
		arena:     make([]byte, blockSize*count),
		blockSize: blockSize,
		free:      make([]extent, 0, count),
		live:      make(map[int]allocation, count),
	}
	// popped from the end, lowest offset first
	for i := count - 1; i >= 0; i-- {
		p.free = append(p.free, extent{off: i * blockSize, size: blockSize})
	}
	return p, nil
}

// Name returns the label given at construction.
func (p *Pool) Name() string { return p.name }

// Size returns the arena capacity in bytes, zero once destroyed.
func (p *Pool) Size() int { return len(p.arena) }

// Usage returns the number of bytes held by live blocks.
func (p *Pool) Usage() int { return p.used }

// BlockSize returns the fixed block size of an array pool, zero for a heap.
func (p *Pool) BlockSize() int { return p.blockSize }

// Alloc reserves at least n bytes.
func (p *Pool) Alloc(n int) (Block, error) {
	if n < 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrSize, n)
	}
	if p.live == nil {
		return Block{}, ErrNoSpace
	}

	var e extent
	if p.blockSize > 0 {
		if n > p.blockSize || len(p.free) == 0 {
			return Block{}, ErrNoSpace
		}
		e = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
	} else {
		need := alignUp(max(n, 1), Alignment)
		i := slices.IndexFunc(p.free, func(x extent) bool { return x.size >= need })
		if i < 0 {
			return Block{}, ErrNoSpace
		}
		e = extent{off: p.free[i].off, size: need}
		if p.free[i].size == need {
			p.free = slices.Delete(p.free, i, i+1)
		} else {
			p.free[i].off += need
			p.free[i].size -= need
		}
	}

	p.gen++
	p.live[e.off] = allocation{size: e.size, gen: p.gen}
	p.used += e.size
	return Block{off: e.off, size: e.size, gen: p.gen}, nil
}

// Validate reports whether b is a live allocation of p.
func (p *Pool) Validate(b Block) bool {
	if p.live == nil {
		return false
	}
	a, ok := p.live[b.off]
	return ok && a.gen == b.gen && a.size == b.size
}

// Bytes returns the memory of a live block, nil otherwise. The slice
// capacity is clipped to the block.
func (p *Pool) Bytes(b Block) []byte {
	if !p.Validate(b) {
		return nil
	}
	return p.arena[b.off : b.off+b.size : b.off+b.size]
}

// Free returns b to the pool.
func (p *Pool) Free(b Block) error {
	if !p.Validate(b) {
		return ErrInvalid
	}
	delete(p.live, b.off)
	p.used -= b.size

	e := extent{off: b.off, size: b.size}
	if p.blockSize > 0 {
		p.free = append(p.free, e)
		return nil
	}

	i, _ := slices.BinarySearchFunc(p.free, e.off, func(x extent, off int) int { return x.off - off })
	p.free = slices.Insert(p.free, i, e)
	if i+1 < len(p.free) && p.free[i].off+p.free[i].size == p.free[i+1].off {
		p.free[i].size += p.free[i+1].size
		p.free = slices.Delete(p.free, i+1, i+2)
	}
	if i > 0 && p.free[i-1].off+p.free[i-1].size == p.free[i].off {
		p.free[i-1].size += p.free[i].size
		p.free = slices.Delete(p.free, i, i+1)
	}
	return nil
}

// Destroy releases the arena. Every outstanding block becomes invalid and
// further allocations fail.
func (p *Pool) Destroy() {
	p.arena = nil
	p.free = nil
	p.live = nil
	p.used = 0
}

// Destroyed reports whether Destroy has been called.
func (p *Pool) Destroyed() bool { return p.live == nil }

func alignUp[T constraints.Integer](v, a T) T {
	return (v + a - 1) / a * a
}
