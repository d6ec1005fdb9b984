package target

import "encoding/binary"

// FakeAddressSpace is an in-memory AddressSpace used by tests and by the
// CLI's fixture-driven "match" command. Bytes outside any registered
// region are reported unmapped.
type FakeAddressSpace struct {
	regions []fakeRegion
}

type fakeRegion struct {
	base int64
	data []byte
}

// NewFakeAddressSpace builds an empty address space.
func NewFakeAddressSpace() *FakeAddressSpace {
	return &FakeAddressSpace{}
}

// Map installs data as readable memory starting at base.
func (f *FakeAddressSpace) Map(base int64, data []byte) {
	f.regions = append(f.regions, fakeRegion{base: base, data: data})
}

func (f *FakeAddressSpace) find(addr int64) (fakeRegion, int, bool) {
	for _, r := range f.regions {
		if addr >= r.base && addr < r.base+int64(len(r.data)) {
			return r, int(addr - r.base), true
		}
	}
	return fakeRegion{}, 0, false
}

// Mapped implements AddressSpace.
func (f *FakeAddressSpace) Mapped(addr int64) bool {
	_, _, ok := f.find(addr)
	return ok
}

// ReadByte implements AddressSpace.
func (f *FakeAddressSpace) ReadByte(addr int64) byte {
	r, off, ok := f.find(addr)
	if !ok {
		return 0
	}
	return r.data[off]
}

// ReadInt32 implements AddressSpace.
func (f *FakeAddressSpace) ReadInt32(addr int64) int32 {
	var buf [4]byte
	for i := range buf {
		buf[i] = f.ReadByte(addr + int64(i))
	}
	return int32(binary.LittleEndian.Uint32(buf[:]))
}

// FakeModules is a static ModuleLister for tests and fixtures.
type FakeModules struct {
	Mods []Module
}

// Modules implements ModuleLister.
func (f *FakeModules) Modules() []Module { return f.Mods }
