// Package fixture loads the section/relocation tables and address-space
// snapshots the matcher needs from a YAML description file.
//
// The real object-file loader and the real running-process memory reader
// are external collaborators out of scope for this repo (spec §1); this
// package is their stand-in for the CLI's "match" command and for tests,
// playing the same role bbcdisasm's ParseDFS played for its disassembler
// front-end: read a structured catalog of named entries — there a disk's
// file catalog, here a patch's section/relocation tables — into the
// descriptor types the core algorithm consumes.
package fixture

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arnoldjb/runpre/internal/matcher"
	"github.com/arnoldjb/runpre/internal/target"
)

// Region describes a block of memory to preload into a FakeAddressSpace,
// with its bytes given as a hex string for readability in YAML.
type Region struct {
	Base int64  `yaml:"base"`
	Hex  string `yaml:"hex"`
}

// Section mirrors matcher.Section for YAML decoding.
type Section struct {
	Name     string  `yaml:"name"`
	Symbol   string  `yaml:"symbol"`
	PreAddr  int64   `yaml:"pre_addr"`
	Size     int64   `yaml:"size"`
	SymAddrs []int64 `yaml:"sym_addrs"`
}

// Reloc mirrors matcher.Reloc for YAML decoding; Symbol is resolved to a
// shared *matcher.Binding by name across all relocations and bindings.
type Reloc struct {
	PreAddr    int64  `yaml:"pre_addr"`
	Symbol     string `yaml:"symbol"`
	Addend     int64  `yaml:"addend"`
	PCRelative bool   `yaml:"pc_relative"`
}

// Binding mirrors a pre-known symbol value (normally all NoVal at entry).
type Binding struct {
	Name   string `yaml:"name"`
	Value  int64  `yaml:"value"`
	Status string `yaml:"status"` // "noval", "temp", "val" — default noval
}

// Module mirrors target.Module for YAML decoding.
type Module struct {
	Name     string `yaml:"name"`
	CodeBase int64  `yaml:"code_base"`
	CodeSize int64  `yaml:"code_size"`
	InitBase int64  `yaml:"init_base"`
	InitSize int64  `yaml:"init_size"`
}

// File is the top-level YAML document shape.
type File struct {
	Sections    []Section `yaml:"sections"`
	Relocations []Reloc   `yaml:"relocations"`
	Bindings    []Binding `yaml:"bindings"`
	Modules     []Module  `yaml:"modules"`
	PreImage    []Region  `yaml:"pre_image"`
	RunImage    []Region  `yaml:"run_image"`
}

// Load reads and parses a fixture file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return &f, nil
}

// Build turns the parsed fixture into the concrete inputs matcher.New and
// matcher.Run need: populated pre/run address spaces, a module list, the
// section descriptors, and the relocation/binding tables with shared
// *matcher.Binding pointers.
func (f *File) Build() (pre, run *target.FakeAddressSpace, mods *target.FakeModules, sections []*matcher.Section, relocs []*matcher.Reloc, bindings []*matcher.Binding, err error) {
	pre = target.NewFakeAddressSpace()
	run = target.NewFakeAddressSpace()

	for _, r := range f.PreImage {
		b, decErr := hex.DecodeString(r.Hex)
		if decErr != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("decoding pre_image at %#x: %w", r.Base, decErr)
		}
		pre.Map(r.Base, b)
	}
	for _, r := range f.RunImage {
		b, decErr := hex.DecodeString(r.Hex)
		if decErr != nil {
			return nil, nil, nil, nil, nil, nil, fmt.Errorf("decoding run_image at %#x: %w", r.Base, decErr)
		}
		run.Map(r.Base, b)
	}

	mods = &target.FakeModules{}
	for _, m := range f.Modules {
		mods.Mods = append(mods.Mods, target.Module{
			Name: m.Name, CodeBase: m.CodeBase, CodeSize: m.CodeSize,
			InitBase: m.InitBase, InitSize: m.InitSize,
		})
	}

	byName := make(map[string]*matcher.Binding)
	get := func(name string) *matcher.Binding {
		if b, ok := byName[name]; ok {
			return b
		}
		b := &matcher.Binding{Name: name, Status: matcher.NoVal}
		byName[name] = b
		return b
	}

	for _, b := range f.Bindings {
		nb := get(b.Name)
		nb.Value = b.Value
		switch b.Status {
		case "val", "VAL":
			nb.Status = matcher.Val
		case "temp", "TEMP":
			nb.Status = matcher.Temp
		default:
			nb.Status = matcher.NoVal
		}
	}

	for _, r := range f.Relocations {
		flags := matcher.RelocFlag(0)
		if r.PCRelative {
			flags |= matcher.PCRelative
		}
		relocs = append(relocs, &matcher.Reloc{
			PreAddr: r.PreAddr,
			Symbol:  get(r.Symbol),
			Addend:  r.Addend,
			Flags:   flags,
		})
	}

	for _, s := range f.Sections {
		sections = append(sections, &matcher.Section{
			Name: s.Name, Symbol: s.Symbol, PreAddr: s.PreAddr,
			Size: s.Size, SymAddrs: s.SymAddrs,
		})
	}

	for _, b := range byName {
		bindings = append(bindings, b)
	}

	return pre, run, mods, sections, relocs, bindings, nil
}
