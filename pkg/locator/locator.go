// Package locator maps tool names to runnable tool targets.
//
// Tools are searched in a fixed tier order and the first tier that provides a
// tool wins:
//
//  1. a dedicated Go package "<tools>/zres-<tool>"
//  2. an entry point "<tools>/zres/cmd/<tool>" of the shared tools package
//  3. a builtin registered in the driver
//  4. an executable "zres-<tool>" next to the driver executable
//
// A tool that prints the delegate directive hands the request to the next
// tier, see ResolveFrom.
package locator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/zres/pkg/domain"
)

// Resolver is one tier of the search.
type Resolver interface {
	Tier() domain.Tier
	// TryResolve returns the tool target if this tier provides name.
	TryResolve(name string) (domain.ToolTarget, bool)
	// Candidate describes where this tier looked for name.
	Candidate(name string) string
	// List returns every tool this tier provides.
	List() ([]domain.ToolTarget, error)
}

// Locator resolves tools over an ordered list of resolvers.
type Locator struct {
	resolvers []Resolver
}

// New creates a Locator. Every resolver is listed once up front, so broken
// tool directories and duplicate claims fail before any pass runs.
func New(resolvers ...Resolver) (*Locator, error) {
	for _, r := range resolvers {
		tools, err := r.List()
		if err != nil {
			return nil, fmt.Errorf("%w: %s tools: %v", domain.ErrConfig, r.Tier(), err)
		}
		if err := checkClaims(tools); err != nil {
			return nil, fmt.Errorf("%w: %s tools: %v", domain.ErrConfig, r.Tier(), err)
		}
	}
	return &Locator{resolvers: resolvers}, nil
}

// checkClaims rejects two tools of one tier whose suffixes only differ in
// case, as they cannot be told apart on every file system.
func checkClaims(tools []domain.ToolTarget) error {
	seen := make(map[string]domain.ToolTarget, len(tools))
	for _, t := range tools {
		key := strings.ToLower(t.Name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("suffix %q is claimed by both %s and %s", domain.RequestSuffix+key, describe(prev), describe(t))
		}
		seen[key] = t
	}
	return nil
}

func describe(t domain.ToolTarget) string {
	if t.Path == "" {
		return t.Name
	}
	return t.Path
}

// Len returns the number of tiers.
func (l *Locator) Len() int { return len(l.resolvers) }

// Resolve returns the first tier providing name.
func (l *Locator) Resolve(name string) (domain.ToolTarget, int, error) {
	return l.ResolveFrom(name, 0)
}

// ResolveFrom searches the tiers starting at index from. It returns the tool
// target and the index of the tier that provided it, so a delegating tool
// can be followed up with ResolveFrom(name, index+1).
func (l *Locator) ResolveFrom(name string, from int) (domain.ToolTarget, int, error) {
	for i := from; i < len(l.resolvers); i++ {
		if t, ok := l.resolvers[i].TryResolve(name); ok {
			return t, i, nil
		}
	}
	nf := &domain.ToolNotFoundError{Tool: name}
	for i, r := range l.resolvers {
		if i < from {
			nf.Delegated = append(nf.Delegated, r.Tier())
			continue
		}
		nf.Candidates = append(nf.Candidates, r.Candidate(name))
	}
	return domain.ToolTarget{}, -1, nf
}

// List returns the tools of every tier, ordered by name then tier. Entries
// hidden by an earlier tier are flagged as shadowed.
func (l *Locator) List() ([]domain.ToolInfo, error) {
	var out []domain.ToolInfo
	seen := make(map[string]bool)
	for _, r := range l.resolvers {
		tools, err := r.List()
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			out = append(out, domain.ToolInfo{ToolTarget: t, Shadowed: seen[t.Name]})
		}
		for _, t := range tools {
			seen[t.Name] = true
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Tier < out[j].Tier
	})
	return out, nil
}
