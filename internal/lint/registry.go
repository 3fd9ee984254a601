package lint

import (
	"fmt"
	"slices"
	"strings"
)

// Off disables a rule in Configure.
const Off = "off"

// Registry holds the known analyzers and per-rule configuration.
type Registry struct {
	byName    map[string]*Analyzer
	overrides map[string]Severity
	disabled  map[string]bool
}

// NewRegistry returns a registry holding analyzers. It panics on duplicate
// names, which is a programming error for built-ins.
func NewRegistry(analyzers ...*Analyzer) *Registry {
	r := &Registry{
		byName:    make(map[string]*Analyzer),
		overrides: make(map[string]Severity),
		disabled:  make(map[string]bool),
	}
	for _, a := range analyzers {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry returns a registry with every built-in analyzer.
func DefaultRegistry() *Registry { return NewRegistry(Builtins()...) }

// Register adds a. Names must be unique.
func (r *Registry) Register(a *Analyzer) error {
	if a.Name == "" || a.Run == nil {
		return fmt.Errorf("lint: analyzer needs a name and a Run function")
	}
	if _, ok := r.byName[a.Name]; ok {
		return fmt.Errorf("lint: analyzer %q registered twice", a.Name)
	}
	if a.Severity == 0 {
		a.Severity = SeverityWarning
	}
	r.byName[a.Name] = a
	return nil
}

// Lookup returns the analyzer called name.
func (r *Registry) Lookup(name string) (*Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Configure applies rule settings: each value is "off" or a severity.
// Unknown rule names are rejected so typos do not silently do nothing.
func (r *Registry) Configure(rules map[string]string) error {
	for name, setting := range rules {
		if _, ok := r.byName[name]; !ok {
			return fmt.Errorf("lint: unknown rule %q", name)
		}
		if strings.EqualFold(setting, Off) {
			r.disabled[name] = true
			continue
		}
		sev, err := ParseSeverity(setting)
		if err != nil {
			return fmt.Errorf("lint: rule %q: %w", name, err)
		}
		delete(r.disabled, name)
		r.overrides[name] = sev
	}
	return nil
}

// Enabled reports whether name is registered and not switched off.
func (r *Registry) Enabled(name string) bool {
	_, ok := r.byName[name]
	return ok && !r.disabled[name]
}

// All returns every registered analyzer sorted by name, with configured
// severities applied.
func (r *Registry) All() []*Analyzer {
	out := make([]*Analyzer, 0, len(r.byName))
	for _, a := range r.byName {
		out = append(out, r.effective(a))
	}
	slices.SortFunc(out, func(a, b *Analyzer) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// For returns the enabled analyzers that apply to language, sorted by name.
func (r *Registry) For(language string) []*Analyzer {
	var out []*Analyzer
	for _, a := range r.All() {
		if r.disabled[a.Name] {
			continue
		}
		if a.Language == "" || a.Language == language {
			out = append(out, a)
		}
	}
	return out
}

func (r *Registry) effective(a *Analyzer) *Analyzer {
	sev, ok := r.overrides[a.Name]
	if !ok {
		return a
	}
	cp := *a
	cp.Severity = sev
	return &cp
}
