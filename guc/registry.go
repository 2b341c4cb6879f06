package guc

import (
	"strings"
	"sync"
)

// Registry is the setting-registry contract the reload engine depends on.
// A single process-wide Registry is created once at startup and never
// torn down.
type Registry interface {
	// Find looks up a setting by case-insensitive name. missingOK
	// controls nothing about Find's own return (it never errors); it
	// documents to the reader that the caller is prepared for a miss.
	Find(name string, missingOK bool) (*Setting, bool)
	// IsCustomClass reports whether prefix appears in the comma-separated
	// whitelist value.
	IsCustomClass(prefix, whitelistValue string) bool
	// CallStringCheckHook canonicalizes and validates a proposed string
	// value for entry (used specifically for the class whitelist).
	CallStringCheckHook(entry *Setting, value *string, source Source) error
	// SetConfigOption is the atomic validate-or-apply primitive. A nil
	// value resets the setting to its boot default.
	SetConfigOption(name string, value *string, ctx Context, source Source, apply bool) error
	// SetConfigSourcefile records provenance after a successful commit.
	SetConfigSourcefile(name, filename string, line int)
	// GetConfigOption reads the currently effective value.
	GetConfigOption(name string, missingOK bool) (string, error)
	// Settings enumerates every registered setting, in registration
	// order, for the clear-flags and removal-detection passes.
	Settings() []*Setting
	// Register adds a new setting definition. Safe to call only before
	// the registry starts serving reloads.
	Register(s *Setting)
	// EnsurePlaceholder creates (or returns the existing) entry for a
	// qualified custom-class name with no prior definition.
	EnsurePlaceholder(name string) *Setting
	// ClearInFileFlags resets every setting's InFile flag, run once at
	// the start of a reload's pre-pass.
	ClearInFileFlags()
}

// registry is the in-memory Registry implementation.
type registry struct {
	mu     sync.RWMutex
	byName map[string]*Setting
	order  []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() Registry {
	return &registry{byName: make(map[string]*Setting)}
}

func key(name string) string { return strings.ToLower(name) }

func (r *registry) Register(s *Setting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(s.Name)
	if _, exists := r.byName[k]; !exists {
		r.order = append(r.order, k)
	}
	r.byName[k] = s
}

func (r *registry) Find(name string, _ bool) (*Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[key(name)]
	return s, ok
}

func (r *registry) IsCustomClass(prefix, whitelistValue string) bool {
	return SplitContains(whitelistValue, prefix)
}

func (r *registry) CallStringCheckHook(entry *Setting, value *string, source Source) error {
	if entry == nil || value == nil {
		return nil
	}
	canonical, err := validateKind(entry, *value)
	if err != nil {
		return &ValueRejectedError{Name: entry.Name, Value: *value, Reason: err}
	}
	if entry.CheckHook != nil {
		canonical, err = entry.CheckHook(entry, canonical, source)
		if err != nil {
			return &ValueRejectedError{Name: entry.Name, Value: *value, Reason: err}
		}
	}
	*value = canonical
	return nil
}

func (r *registry) SetConfigOption(name string, value *string, ctx Context, source Source, apply bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byName[key(name)]
	if !ok {
		return &UnknownSettingError{Name: name}
	}

	if value == nil {
		if apply {
			entry.Value = entry.BootDefault
			entry.Source = SourceDefault
			entry.ResetSource = SourceDefault
			entry.ResetValue = entry.BootDefault
			if entry.AssignHook != nil {
				entry.AssignHook(entry, entry.Value)
			}
		}
		return nil
	}

	canonical, err := validateKind(entry, *value)
	if err != nil {
		return &ValueRejectedError{Name: entry.Name, Value: *value, Reason: err}
	}
	if entry.CheckHook != nil {
		canonical, err = entry.CheckHook(entry, canonical, source)
		if err != nil {
			return &ValueRejectedError{Name: entry.Name, Value: *value, Reason: err}
		}
	}

	if source == SourceFile {
		entry.InFile = true
	}

	if !apply {
		return nil
	}

	// A lower-trust source never overrides an already-higher-trust one:
	// the file cannot override argv. This applies generally, not just to
	// the whitelist.
	if source.Rank() < entry.Source.Rank() {
		return nil
	}
	// ChangeClass governs whether this context may change the value at
	// all; an illegal change is skipped, never an error — startup-only
	// parameters are detected but not applied.
	if canonical != entry.Value && !entry.ChangeClass.AllowsChange(ctx) {
		return nil
	}

	entry.Value = canonical
	entry.Source = source
	entry.ResetSource = source
	entry.ResetValue = canonical
	if entry.AssignHook != nil {
		entry.AssignHook(entry, entry.Value)
	}
	return nil
}

func (r *registry) SetConfigSourcefile(name, filename string, line int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byName[key(name)]; ok {
		entry.SourceFile = filename
		entry.SourceLine = line
	}
}

func (r *registry) GetConfigOption(name string, _ bool) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[key(name)]
	if !ok {
		return "", &UnknownSettingError{Name: name}
	}
	return entry.Value, nil
}

func (r *registry) Settings() []*Setting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Setting, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byName[k])
	}
	return out
}

func (r *registry) ClearInFileFlags() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.order {
		r.byName[k].InFile = false
	}
}

func (r *registry) EnsurePlaceholder(name string) *Setting {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byName[key(name)]; ok {
		return s
	}
	s := &Setting{
		Name:        name,
		Kind:        KindString,
		ChangeClass: RuntimeByAny,
		Placeholder: true,
	}
	r.byName[key(name)] = s
	r.order = append(r.order, key(name))
	return s
}
