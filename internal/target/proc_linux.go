//go:build linux

package target

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProcAddressSpace reads a running Linux process's memory through
// /proc/<pid>/mem, consulting /proc/<pid>/maps to answer Mapped without
// risking a read of unmapped memory.
type ProcAddressSpace struct {
	pid  int
	mem  *os.File
	maps []procRegion
}

type procRegion struct {
	start, end int64
	readable   bool
}

// NewProcAddressSpace opens /proc/<pid>/mem for a live process.
func NewProcAddressSpace(pid int) (*ProcAddressSpace, error) {
	mem, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
	if err != nil {
		return nil, err
	}
	p := &ProcAddressSpace{pid: pid, mem: mem}
	if err := p.reloadMaps(); err != nil {
		mem.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the underlying /proc/<pid>/mem handle.
func (p *ProcAddressSpace) Close() error { return p.mem.Close() }

func (p *ProcAddressSpace) reloadMaps() error {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return err
	}
	defer f.Close()

	var regions []procRegion
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			continue
		}
		start, err := strconv.ParseInt(bounds[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseInt(bounds[1], 16, 64)
		if err != nil {
			continue
		}
		regions = append(regions, procRegion{
			start:    start,
			end:      end,
			readable: strings.HasPrefix(fields[1], "r"),
		})
	}
	p.maps = regions
	return sc.Err()
}

// Mapped implements target.AddressSpace.
func (p *ProcAddressSpace) Mapped(addr int64) bool {
	for _, r := range p.maps {
		if addr >= r.start && addr < r.end {
			return r.readable
		}
	}
	return false
}

// ReadByte implements target.AddressSpace. Callers must check Mapped first;
// an out-of-range read returns 0 rather than panicking.
func (p *ProcAddressSpace) ReadByte(addr int64) byte {
	var buf [1]byte
	if _, err := p.mem.ReadAt(buf[:], addr); err != nil {
		return 0
	}
	return buf[0]
}

// ReadInt32 implements target.AddressSpace.
func (p *ProcAddressSpace) ReadInt32(addr int64) int32 {
	var buf [4]byte
	if _, err := p.mem.ReadAt(buf[:], addr); err != nil {
		return 0
	}
	return int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24
}
