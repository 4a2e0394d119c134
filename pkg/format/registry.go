package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scttfrdmn/bioconv-go/pkg/bioerr"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
)

type registryKey struct {
	name string
	mode source.Mode
}

// Registry maps (format, mode) pairs to adapters.
type Registry struct {
	adapters map[registryKey]Adapter
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[registryKey]Adapter),
		aliases:  make(map[string]string),
	}
}

// Register adds a under each mode. With no modes it is registered for
// every mode.
func (r *Registry) Register(a Adapter, modes ...source.Mode) {
	if len(modes) == 0 {
		modes = source.Modes
	}
	for _, m := range modes {
		r.adapters[registryKey{a.Name(), m}] = a
	}
}

// Alias makes alias resolve to the canonical name.
func (r *Registry) Alias(alias, name string) {
	r.aliases[alias] = name
}

// Canonical resolves aliases and case.
func (r *Registry) Canonical(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	if c, ok := r.aliases[name]; ok {
		return c
	}
	return name
}

// Lookup returns the adapter for name under mode.
func (r *Registry) Lookup(name string, mode source.Mode) (Adapter, error) {
	c := r.Canonical(name)
	if a, ok := r.adapters[registryKey{c, mode}]; ok {
		return a, nil
	}
	return nil, bioerr.NotFound(c, fmt.Errorf("no %s decoder for %s input", mode, c))
}

// Names lists the registered canonical names.
func (r *Registry) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for k := range r.adapters {
		if !seen[k.name] {
			seen[k.name] = true
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

// Modes lists the modes name is registered under.
func (r *Registry) Modes(name string) []source.Mode {
	c := r.Canonical(name)
	var out []source.Mode
	for _, m := range source.Modes {
		if _, ok := r.adapters[registryKey{c, m}]; ok {
			out = append(out, m)
		}
	}
	return out
}

// DefaultRegistry returns a registry holding every built-in format.
// BAM and CRAM are Raw only: their block framing is part of their own
// grammar.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FASTA{})
	r.Register(FASTQ{})
	r.Register(SAM{})
	r.Register(BAM{}, source.Raw)
	r.Register(CRAM{}, source.Raw)
	r.Register(VCF{})
	r.Register(BCF{})
	r.Register(GFF{})
	r.Register(GFA{})
	r.Register(BED{})
	r.Alias("fa", "fasta")
	r.Alias("fq", "fastq")
	return r
}
