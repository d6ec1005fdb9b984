// Package target defines the external collaborators the matcher consults
// about the running program: its virtual-memory layout and loaded
// modules. Object-file parsing and the downstream patcher live outside
// this package entirely; it only describes the read-only view of a live
// process the matcher needs.
package target

// AddressSpace answers questions about the running program's virtual
// memory. Every byte the matcher reads from the run image must first be
// checked with Mapped.
type AddressSpace interface {
	// Mapped reports whether addr is backed by readable memory.
	Mapped(addr int64) bool
	// ReadByte reads one byte. Callers must have checked Mapped first.
	ReadByte(addr int64) byte
	// ReadInt32 reads a little-endian 32-bit immediate. Callers must have
	// checked Mapped for all four covered bytes first.
	ReadInt32(addr int64) int32
}

// Module describes one loaded module (kernel module, shared object, or
// equivalent) as the host enumerates it.
type Module struct {
	Name     string
	CodeBase int64
	CodeSize int64
	InitBase int64
	InitSize int64
}

// ModuleLister enumerates the modules currently loaded into the running
// program, for brute-force search (spec §4.4).
type ModuleLister interface {
	Modules() []Module
}

// Yielder is a cooperative scheduling checkpoint: the driver calls it
// between candidate tries and at brute-search iterations so the host
// program remains responsive during a long match.
type Yielder interface {
	Yield()
}

// YielderFunc adapts a plain function to the Yielder interface.
type YielderFunc func()

// Yield calls the underlying function.
func (f YielderFunc) Yield() {
	if f != nil {
		f()
	}
}
