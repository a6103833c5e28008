package vm

import "fmt"

// initialSlots is the starting capacity of the array table. The table
// doubles whenever the free chain runs dry.
const initialSlots = 256

// slot is one entry in the array table. An active slot owns its
// storage; a free slot has nil data and its next field links the free
// chain. A next of 0 terminates the chain, since identifier 0 is never
// free.
type slot struct {
	data []uint32
	next uint32
}

// Memory is the identifier-addressed array store. Identifier 0 always
// names the program image; the image lives in slot 0 like any other
// array, so element reads and writes through identifier 0 observe the
// running program, while LoadProgram can swap the whole image at once.
type Memory struct {
	slots  []slot
	free   uint32 // head of the free chain, 0 when exhausted
	active int    // number of active identifiers, including 0
}

// NewMemory creates a Memory whose program image is prog.
func NewMemory(prog []uint32) *Memory {
	if prog == nil {
		prog = []uint32{}
	}
	m := &Memory{
		slots:  make([]slot, initialSlots),
		free:   1,
		active: 1,
	}
	m.slots[0].data = prog
	linkFree(m.slots, 1, initialSlots-1)
	return m
}

// linkFree chains slots first..last into an ascending free list, with
// last terminating at 0.
func linkFree(slots []slot, first, last uint32) {
	for i := first; i < last; i++ {
		slots[i] = slot{next: i + 1}
	}
	slots[last] = slot{next: 0}
}

// Allocate claims an identifier and gives it length zero-initialized
// words. Free identifiers are reused before the table grows.
func (m *Memory) Allocate(length uint32) uint32 {
	id := m.free
	if id != 0 {
		m.free = m.slots[id].next
	} else {
		size := uint32(len(m.slots))
		id = size
		size *= 2
		grown := make([]slot, size)
		copy(grown, m.slots)
		m.slots = grown
		m.free = id + 1
		linkFree(m.slots, m.free, size-1)
	}
	m.slots[id] = slot{data: make([]uint32, length)}
	m.active++
	return id
}

// Free releases the array named by id and pushes the identifier onto
// the free chain. Freeing the program image, an out-of-range
// identifier, or an already-free identifier is a bad-delete fault.
func (m *Memory) Free(id uint32) error {
	if id == 0 || id >= uint32(len(m.slots)) || m.slots[id].data == nil {
		return fmt.Errorf("%w: id %d", ErrBadDelete, id)
	}
	m.slots[id] = slot{next: m.free}
	m.free = id
	m.active--
	return nil
}

// Active reports whether id currently names an allocated array.
func (m *Memory) Active(id uint32) bool {
	return id < uint32(len(m.slots)) && m.slots[id].data != nil
}

// Length returns the word count of the array named by id.
func (m *Memory) Length(id uint32) (uint32, error) {
	if !m.Active(id) {
		return 0, fmt.Errorf("%w: id %d", ErrInactiveArray, id)
	}
	return uint32(len(m.slots[id].data)), nil
}

// Read returns element i of the array named by id. An inactive
// identifier and an index past the array's length fault the same way.
func (m *Memory) Read(id, i uint32) (uint32, error) {
	if !m.Active(id) {
		return 0, fmt.Errorf("%w: id %d", ErrInactiveArray, id)
	}
	data := m.slots[id].data
	if i >= uint32(len(data)) {
		return 0, fmt.Errorf("%w: id %d index %d (length %d)", ErrInactiveArray, id, i, len(data))
	}
	return data[i], nil
}

// Write stores v at element i of the array named by id.
func (m *Memory) Write(id, i, v uint32) error {
	if !m.Active(id) {
		return fmt.Errorf("%w: id %d", ErrInactiveArray, id)
	}
	data := m.slots[id].data
	if i >= uint32(len(data)) {
		return fmt.Errorf("%w: id %d index %d (length %d)", ErrInactiveArray, id, i, len(data))
	}
	data[i] = v
	return nil
}

// Program returns the current program image.
func (m *Memory) Program() []uint32 {
	return m.slots[0].data
}

// LoadProgram replaces the program image with an independent copy of
// the array named by id, updating slot 0 in lockstep, and returns the
// new image. Subsequent writes to the source array do not alter the
// program.
func (m *Memory) LoadProgram(id uint32) ([]uint32, error) {
	if id >= uint32(len(m.slots)) {
		return nil, fmt.Errorf("%w: id %d", ErrInactiveArray, id)
	}
	src := m.slots[id].data
	if src == nil {
		return nil, fmt.Errorf("%w: id %d", ErrProgramFromInactive, id)
	}
	prog := make([]uint32, len(src))
	copy(prog, src)
	m.slots[0].data = prog
	return prog, nil
}

// ActiveCount returns the number of active identifiers, including the
// program image.
func (m *Memory) ActiveCount() int {
	return m.active
}

// freeLen walks the free chain and returns its length. It is used by
// tests to check that the chain stays acyclic: a walk longer than the
// table means a cycle.
func (m *Memory) freeLen() (int, bool) {
	n := 0
	for id := m.free; id != 0; id = m.slots[id].next {
		n++
		if n > len(m.slots) {
			return n, false
		}
	}
	return n, true
}
