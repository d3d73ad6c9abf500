package compiler

import "fmt"

// WordSize is the storage size of every scalar (int or float).
const WordSize = 4

// Address-space ceilings. Exceeding either is a structural failure for the
// run, not a diagnostic category.
const (
	maxGlobalBytes = 1 << 20
	maxFrameBytes  = 1 << 16
)

// FrameLayout is the activation-record description for one function:
// parameter area, then locals, then temporaries, plus the saved fp/lr pair.
// Offsets hand-ed out are relative to the start of the parameter area.
type FrameLayout struct {
	Name       string
	ParamBytes int
	LocalBytes int
	TempBytes  int
	finalized  bool
}

// Size returns the full frame size in bytes: the saved fp/lr pair plus all
// three areas, rounded up to the 16-byte stack alignment AArch64 requires.
func (f *FrameLayout) Size() int {
	n := 16 + f.ParamBytes + f.LocalBytes + f.TempBytes
	return (n + 15) &^ 15
}

// MemoryManager assigns byte offsets within each storage class and tracks one
// activation record per function. One instance per compilation run.
type MemoryManager struct {
	globalBytes int
	frames      map[string]*FrameLayout
	order       []string
	cur         *FrameLayout
	err         error // first structural failure, fatal for the run
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{frames: make(map[string]*FrameLayout)}
}

// Err returns the first structural failure (address-space exhaustion), if any.
func (m *MemoryManager) Err() error { return m.err }

func (m *MemoryManager) fail(format string, args ...any) {
	if m.err == nil {
		m.err = fmt.Errorf(format, args...)
	}
}

// AllocGlobal reserves size bytes in the global segment and returns its offset.
func (m *MemoryManager) AllocGlobal(size int) int {
	off := m.globalBytes
	m.globalBytes += size
	if m.globalBytes > maxGlobalBytes {
		m.fail("global segment overflow: %d bytes", m.globalBytes)
	}
	return off
}

// GlobalBytes is the total size of the global segment so far.
func (m *MemoryManager) GlobalBytes() int { return m.globalBytes }

// BeginFunction opens a fresh activation record for name. Any previously open
// record must have been finalized by EndFunction.
func (m *MemoryManager) BeginFunction(name string) {
	f := &FrameLayout{Name: name}
	m.frames[name] = f
	m.order = append(m.order, name)
	m.cur = f
}

// Resume reopens a previously begun, not yet finalized record. Used to switch
// back to the program-entry record after a nested function declaration closes.
func (m *MemoryManager) Resume(name string) {
	if f, ok := m.frames[name]; ok && !f.finalized {
		m.cur = f
	}
}

// AllocParam reserves a parameter slot in the open record.
func (m *MemoryManager) AllocParam(size int) int {
	off := m.cur.ParamBytes
	m.cur.ParamBytes += size
	m.checkFrame()
	return off
}

// AllocLocal reserves a local-variable slot after the parameter area.
// Parameter allocation must be complete before the first local is placed.
func (m *MemoryManager) AllocLocal(size int) int {
	off := m.cur.ParamBytes + m.cur.LocalBytes
	m.cur.LocalBytes += size
	m.checkFrame()
	return off
}

// AllocTemp reserves a temporary slot. The local area can still grow while
// temporaries are being handed out, so the returned offset is relative to the
// start of the temp area; consumers add ParamBytes+LocalBytes once the frame
// is finalized.
func (m *MemoryManager) AllocTemp(size int) int {
	off := m.cur.TempBytes
	m.cur.TempBytes += size
	m.checkFrame()
	return off
}

func (m *MemoryManager) checkFrame() {
	if m.cur.Size() > maxFrameBytes {
		m.fail("activation record overflow in %q: %d bytes", m.cur.Name, m.cur.Size())
	}
}

// EndFunction finalizes the open record and returns it. Called when the
// function body's scope is popped.
func (m *MemoryManager) EndFunction() *FrameLayout {
	f := m.cur
	f.finalized = true
	m.cur = nil
	return f
}

// Frame returns the finalized layout for a function.
func (m *MemoryManager) Frame(name string) (*FrameLayout, bool) {
	f, ok := m.frames[name]
	return f, ok
}

// Frames returns every layout in declaration order.
func (m *MemoryManager) Frames() []*FrameLayout {
	out := make([]*FrameLayout, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.frames[name])
	}
	return out
}
