package projection

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Sentinel package errors.
var (
	ErrFrozen             = errors.New("package is frozen")
	ErrDuplicateName      = errors.New("projection already defined")
	ErrLanguageMismatch   = errors.New("projection language does not match package language")
	ErrProjectionNotFound = errors.New("projection not found")
)

// Package is an ordered set of projections for one language. Packages are
// built and extended at load time, then frozen before matching starts.
type Package struct {
	index       map[string]int
	name        string
	language    string
	projections []*Projection
	mu          sync.RWMutex
	frozen      bool
}

// NewPackage creates an empty, unfrozen package.
func NewPackage(name, language string) *Package {
	return &Package{
		name:     name,
		language: language,
		index:    map[string]int{},
	}
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Language returns the language every projection is compiled for.
func (p *Package) Language() string { return p.language }

// Add appends a projection.
func (p *Package) Add(proj *Projection) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return fmt.Errorf("add %s to %s: %w", proj.Name, p.name, ErrFrozen)
	}

	if _, dup := p.index[proj.Name]; dup {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateName, p.name, proj.Name)
	}

	if proj.Pattern.Language() != p.language {
		return fmt.Errorf("%w: %s is %s, %s is %s",
			ErrLanguageMismatch, proj.Name, proj.Pattern.Language(), p.name, p.language)
	}

	p.index[proj.Name] = len(p.projections)
	p.projections = append(p.projections, proj)

	return nil
}

// Lookup returns the projection with the given name.
func (p *Package) Lookup(name string) (*Projection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx, ok := p.index[name]
	if !ok {
		return nil, false
	}

	return p.projections[idx], true
}

// Projections returns the projections in declaration order.
func (p *Package) Projections() []*Projection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.projections)
}

// Names returns the projection names in declaration order.
func (p *Package) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.projections))
	for i, proj := range p.projections {
		names[i] = proj.Name
	}

	return names
}

// Freeze ends the load phase. Frozen packages reject Add and extension.
func (p *Package) Freeze() {
	p.mu.Lock()
	p.frozen = true
	p.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (p *Package) Frozen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.frozen
}
