// Package reload implements the reload engine: parse, resolve the class
// whitelist, validate every assignment as a dry run, detect and revert
// removed settings, re-seed environment defaults, and only then commit,
// so that any failure before commit leaves the registry unchanged.
package reload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/abit/pgconfd/guc"
	"github.com/abit/pgconfd/gucfile"
)

// EnvReseedFunc re-reads environment-derived and dynamic defaults
// (timezone abbreviations, default client encoding, and the like). Run
// only on reload, never at boot: the subsystems it touches are not yet
// initialized while the process is starting. A nil EnvReseedFunc skips
// the re-seed step.
type EnvReseedFunc func(reg guc.Registry)

// ChangeRecord is one "parameter changed" log-worthy event produced by
// the commit pass.
type ChangeRecord struct {
	Name     string
	OldValue string
	NewValue string
}

func (c ChangeRecord) String() string {
	return fmt.Sprintf("parameter %q changed to %q", c.Name, c.NewValue)
}

// Result summarizes one reload attempt that committed successfully.
type Result struct {
	Changes    []ChangeRecord
	Removed    []string
	Warnings   []error
	ReloadedAt time.Time
}

// Engine is the process-wide reload orchestrator. Exactly one Reload call
// may be in flight at a time; Engine owns that guard with a sync.Mutex
// rather than leaving it to callers.
type Engine struct {
	Registry        guc.Registry
	Fs              afero.Fs
	DataDir         string
	MaxIncludeDepth int
	EnvReseed       EnvReseedFunc

	mu         sync.Mutex
	lastReload time.Time
}

// NewEngine builds an Engine bound to reg, rooted at dataDir for include
// resolution.
func NewEngine(reg guc.Registry, fs afero.Fs, dataDir string) *Engine {
	return &Engine{Registry: reg, Fs: fs, DataDir: dataDir}
}

// LastReload returns the timestamp stamped by the most recent successful
// reload, the zero time.Time before any reload has run.
func (e *Engine) LastReload() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastReload
}

// Reload runs the full parse-validate-commit sequence against path.
// rootCtx is the boot-vs-reload Context governing severity and which
// settings may change. A reload runs to completion or to first error;
// there is no cancellation.
func (e *Engine) Reload(_ context.Context, path string, rootCtx guc.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Parse.
	list, err := gucfile.Parse(path, gucfile.ParseOptions{
		Fs:              e.Fs,
		DataDir:         e.DataDir,
		MaxIncludeDepth: e.MaxIncludeDepth,
	})
	if err != nil {
		return nil, err
	}
	// Freeing the list happens implicitly: it is never referenced again once
	// Reload returns, so the garbage collector reclaims it on every exit
	// path including error; there is no analogue of manual free needed.

	whitelistValue, err := e.resolveWhitelist(list)
	if err != nil {
		return nil, err
	}

	e.Registry.ClearInFileFlags()

	if err := e.validate(list, whitelistValue, rootCtx); err != nil {
		return nil, err
	}

	result := &Result{}
	e.detectRemovals(rootCtx, result)

	if rootCtx == guc.Reload && e.EnvReseed != nil {
		e.EnvReseed(e.Registry)
	}

	e.apply(list, rootCtx, result)

	e.lastReload = time.Now()
	result.ReloadedAt = e.lastReload
	return result, nil
}

// Check parses, resolves the whitelist and dry-run validates against path
// without ever detecting removals or committing. It answers exactly
// the question `pgconfd check` needs ("does this file parse and validate")
// analogous to `postgres --check`, sharing the engine's single-flight lock
// so a check never races a real reload.
func (e *Engine) Check(_ context.Context, path string, rootCtx guc.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, err := gucfile.Parse(path, gucfile.ParseOptions{
		Fs:              e.Fs,
		DataDir:         e.DataDir,
		MaxIncludeDepth: e.MaxIncludeDepth,
	})
	if err != nil {
		return err
	}

	whitelistValue, err := e.resolveWhitelist(list)
	if err != nil {
		return err
	}

	e.Registry.ClearInFileFlags()

	return e.validate(list, whitelistValue, rootCtx)
}

// resolveWhitelist determines the effective custom_variable_classes value
// every other assignment is validated against: an argv-set whitelist wins
// over the file; otherwise the file's own (canonicalized) head assignment
// wins over the currently configured value.
func (e *Engine) resolveWhitelist(list *gucfile.AssignmentList) (string, error) {
	entry, ok := e.Registry.Find(guc.ClassWhitelistSetting, false)
	if !ok {
		return "", fmt.Errorf("registry is missing the required %q setting", guc.ClassWhitelistSetting)
	}
	if entry.ResetSource.Rank() > guc.SourceFile.Rank() {
		return entry.ResetValue, nil
	}
	head := list.Head()
	if head == nil {
		return entry.Value, nil
	}
	value := head.Value
	if err := e.Registry.CallStringCheckHook(entry, &value, guc.SourceFile); err != nil {
		return "", err
	}
	head.Value = value
	return value, nil
}

// validate is the dry-run pre-pass: every assignment is checked against
// the registry without applying anything, so a failure here leaves the
// registry untouched.
func (e *Engine) validate(list *gucfile.AssignmentList, whitelist string, rootCtx guc.Context) error {
	for _, a := range list.Items() {
		if prefix, _, isQualified := strings.Cut(a.Name, "."); isQualified {
			if !guc.SplitContains(whitelist, prefix) {
				return &UndefinedObjectError{Name: a.Name, Prefix: prefix}
			}
			if _, found := e.Registry.Find(a.Name, true); !found {
				continue // no entry yet; a placeholder is created at commit time
			}
		}
		value := a.Value
		if err := e.Registry.SetConfigOption(a.Name, &value, rootCtx, guc.SourceFile, false); err != nil {
			return err
		}
	}
	return nil
}

// detectRemovals reverts settings that were last set from the file but no
// longer appear in it, unless their change class forbids change in this
// context (those only get a warning).
func (e *Engine) detectRemovals(rootCtx guc.Context, result *Result) {
	for _, s := range e.Registry.Settings() {
		if s.ResetSource != guc.SourceFile || s.InFile {
			continue
		}
		s.DemoteFileSourced()
		if !s.ChangeClass.AllowsChange(rootCtx) {
			result.Warnings = append(result.Warnings, &ImmutableSettingWarning{Name: s.Name})
			continue
		}
		if err := e.Registry.SetConfigOption(s.Name, nil, rootCtx, guc.SourceDefault, true); err != nil {
			result.Warnings = append(result.Warnings, err)
			continue
		}
		result.Removed = append(result.Removed, s.Name)
	}
}

// apply is the commit pass: every assignment is applied for real, with
// provenance recorded and value changes collected for logging.
func (e *Engine) apply(list *gucfile.AssignmentList, rootCtx guc.Context, result *Result) {
	for _, a := range list.Items() {
		name := a.Name
		if strings.Contains(name, ".") {
			if _, found := e.Registry.Find(name, true); !found {
				e.Registry.EnsurePlaceholder(name)
			}
		}
		preValue, _ := e.Registry.GetConfigOption(name, true)
		value := a.Value
		if err := e.Registry.SetConfigOption(name, &value, rootCtx, guc.SourceFile, true); err != nil {
			result.Warnings = append(result.Warnings, err)
			continue
		}
		e.Registry.SetConfigSourcefile(name, a.Filename, a.SourceLine)
		postValue, _ := e.Registry.GetConfigOption(name, true)
		if preValue != postValue {
			result.Changes = append(result.Changes, ChangeRecord{Name: name, OldValue: preValue, NewValue: postValue})
		}
	}
}
