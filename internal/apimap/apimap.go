// Package apimap implements the core of this module: the symbol graph that
// indexes workspace Sources, resolves namespaces under nested scoping and
// mixin inheritance, enumerates constants and methods, infers expression
// types by walking method-call chains, and reconciles those results with a
// YardMap documentation archive and an opportunistic LiveMap channel. See
// spec.md §2–§4 for the full algorithm description this package implements.
package apimap

import (
	"time"

	"github.com/standardbeagle/apimap/internal/config"
	"github.com/standardbeagle/apimap/internal/diagnostics"
	"github.com/standardbeagle/apimap/internal/livemap"
	"github.com/standardbeagle/apimap/internal/pin"
	"github.com/standardbeagle/apimap/internal/source"
	"github.com/standardbeagle/apimap/internal/yardmap"
)

// ApiMap is not safe for concurrent use: spec.md §5 models it as
// single-threaded cooperative, with the host serializing calls. It carries
// no internal mutex.
type ApiMap struct {
	cfg  *config.Config
	yard yardmap.YardMap
	live livemap.LiveMap

	sources map[string]source.Source
	mtimes  map[string]time.Time

	workspaceFiles []string
	virtualFile    string
	virtualSource  source.Source

	namespaceMap      map[string][]pin.Node
	namespacePins     map[string][]pin.Pin
	methodPins        map[string][]pin.Pin
	attrPins          map[string][]pin.Pin
	ivarPins          map[string][]pin.Pin
	cvarPins          map[string][]pin.Pin
	constPins         map[string][]pin.Pin
	namespaceIncludes map[string][]string
	namespaceExtends  map[string][]string
	superclasses      map[string]string
	symbolPins        []pin.Pin
	required          []string

	stale     bool
	yardStale bool
	cache     *cache
}

// New constructs an ApiMap bound to cfg. yard and live may be nil, in which
// case an empty YardMap and a Null LiveMap are used — both degrade to empty
// results rather than errors (spec.md §7).
func New(cfg *config.Config, yard yardmap.YardMap, live livemap.LiveMap) *ApiMap {
	if yard == nil {
		yard = yardmap.Empty()
	}
	if live == nil {
		live = livemap.Null{}
	}
	source.ResetGlobalCache()
	return &ApiMap{
		cfg:     cfg,
		yard:    yard,
		live:    live,
		sources: map[string]source.Source{},
		mtimes:  map[string]time.Time{},
		stale:   true,
		cache:   newCache(),
	}
}

// Initialize computes the workspace file set, loads each as a Source, and
// runs a full refresh. Parse failures never abort initialization: they
// become empty Sources (spec.md §4.1).
func (a *ApiMap) Initialize() error {
	files, err := a.cfg.Calculated()
	if err != nil {
		return err
	}
	a.workspaceFiles = files
	for _, f := range files {
		a.loadSource(f)
	}
	a.Refresh(true)
	return nil
}

func (a *ApiMap) loadSource(filename string) {
	src, err := source.LoadCached(filename)
	if err != nil {
		diagnostics.ParseFailure(filename, err)
	}
	a.sources[filename] = src
	a.mtimes[filename] = src.Mtime()
}

// Virtualize replaces the single overlay Source. Steps follow spec.md
// §4.1 virtualize: drop workspace files no longer on disk, install the new
// overlay (evicting any previous one), recompute the workspace set if the
// overlay names a file not previously tracked, then reprocess.
func (a *ApiMap) Virtualize(code, filename string, cursor *int) error {
	a.dropDeletedWorkspaceFiles()

	if a.cfg.IsSourceFilename(filename) {
		if a.virtualFile != "" && a.virtualFile != filename {
			a.eliminate(a.virtualFile)
		}
		var vs source.Source
		if cursor != nil {
			vs = source.Fix(code, filename, cursor)
		} else {
			vs = source.Virtual(code, filename)
		}
		a.virtualFile = filename
		a.virtualSource = vs

		if filename != "" && !a.isWorkspaceFile(filename) {
			files, err := a.cfg.Calculated()
			if err == nil {
				a.reconcileWorkspaceFiles(files)
			}
		}
	}

	a.stale = true
	a.processVirtual()
	return nil
}

func (a *ApiMap) isWorkspaceFile(filename string) bool {
	for _, f := range a.workspaceFiles {
		if f == filename {
			return true
		}
	}
	return false
}

func (a *ApiMap) dropDeletedWorkspaceFiles() {
	kept := a.workspaceFiles[:0:0]
	for _, f := range a.workspaceFiles {
		if !fileExists(f) {
			a.eliminate(f)
			continue
		}
		kept = append(kept, f)
	}
	a.workspaceFiles = kept
}

func (a *ApiMap) reconcileWorkspaceFiles(newFiles []string) {
	newSet := map[string]bool{}
	for _, f := range newFiles {
		newSet[f] = true
	}
	for _, f := range a.workspaceFiles {
		if !newSet[f] {
			a.eliminate(f)
		}
	}
	a.workspaceFiles = newFiles
	for _, f := range newFiles {
		if _, ok := a.sources[f]; !ok {
			a.loadSource(f)
		}
	}
}

// Update reloads one file from disk when it is part of the workspace. If
// filename is not yet a workspace file (a new file, or another path such as
// the config file), it recomputes the workspace set from the current Config
// and retries (spec.md §4.1). The config file itself is not re-read.
func (a *ApiMap) Update(filename string) error {
	if !a.isWorkspaceFile(filename) {
		files, err := a.cfg.Calculated()
		if err != nil {
			return err
		}
		a.reconcileWorkspaceFiles(files)
		if !a.isWorkspaceFile(filename) {
			return nil
		}
	}
	if !fileExists(filename) {
		a.eliminate(filename)
		a.removeFromWorkspace(filename)
		a.stale = true
		return nil
	}
	source.Evict(filename)
	a.loadSource(filename)
	a.stale = true
	return nil
}

func (a *ApiMap) removeFromWorkspace(filename string) {
	kept := a.workspaceFiles[:0:0]
	for _, f := range a.workspaceFiles {
		if f != filename {
			kept = append(kept, f)
		}
	}
	a.workspaceFiles = kept
}

// Changed reports whether the indices are known stale relative to disk: the
// workspace set disagrees with Config.Calculated, a file's mtime differs
// from its cached Source, or a file has been deleted (spec.md §4.1).
func (a *ApiMap) Changed() bool {
	files, err := a.cfg.Calculated()
	if err != nil {
		return true
	}
	if len(files) != len(a.workspaceFiles) {
		return true
	}
	current := map[string]bool{}
	for _, f := range a.workspaceFiles {
		current[f] = true
	}
	for _, f := range files {
		if !current[f] {
			return true
		}
	}
	for _, f := range a.workspaceFiles {
		if !fileExists(f) {
			return true
		}
		info, err := statMtime(f)
		if err != nil {
			return true
		}
		if !info.Equal(a.mtimes[f]) {
			return true
		}
	}
	return false
}

// Refresh rebuilds internal indices when stale, or unconditionally when
// force is true.
func (a *ApiMap) Refresh(force bool) {
	if a.stale || force {
		a.processMaps()
	}
}

// processMaps rebuilds every index from scratch: clears the Cache and pin
// tables, reloads missing Sources, reinstalls the overlay, merges every
// Source's namespace/pin data, dedupes required libraries, refreshes
// LiveMap, clears stale and sets yardStale (spec.md §4.1).
func (a *ApiMap) processMaps() {
	a.cache.clear()
	a.namespaceMap = map[string][]pin.Node{}
	a.namespacePins = map[string][]pin.Pin{}
	a.methodPins = map[string][]pin.Pin{}
	a.attrPins = map[string][]pin.Pin{}
	a.ivarPins = map[string][]pin.Pin{}
	a.cvarPins = map[string][]pin.Pin{}
	a.constPins = map[string][]pin.Pin{}
	a.namespaceIncludes = map[string][]string{}
	a.namespaceExtends = map[string][]string{}
	a.superclasses = map[string]string{}
	a.symbolPins = nil
	a.required = nil

	for _, f := range a.workspaceFiles {
		if _, ok := a.sources[f]; !ok {
			a.loadSource(f)
		}
	}

	var all []source.Source
	for _, f := range a.workspaceFiles {
		// The overlay replaces the on-disk Source for the same filename
		// rather than sitting alongside it (spec.md §5 "Overlay buffer").
		if f == a.virtualFile {
			continue
		}
		all = append(all, a.sources[f])
	}
	if a.virtualSource != nil {
		all = append(all, a.virtualSource)
	}

	requiredSeen := map[string]bool{}
	for _, src := range all {
		for fqn, nodes := range src.NamespaceNodes() {
			a.namespaceMap[fqn] = append(a.namespaceMap[fqn], nodes...)
		}
		a.mapSource(src)
		for ns, targets := range src.NamespaceIncludes() {
			a.namespaceIncludes[ns] = append(a.namespaceIncludes[ns], targets...)
		}
		for ns, targets := range src.NamespaceExtends() {
			a.namespaceExtends[ns] = append(a.namespaceExtends[ns], targets...)
		}
		for ns, super := range src.Superclasses() {
			a.superclasses[ns] = super
		}
		for _, lib := range src.Required() {
			if !requiredSeen[lib] {
				requiredSeen[lib] = true
				a.required = append(a.required, lib)
			}
		}
	}

	_ = a.live.Refresh()
	a.stale = false
	a.yardStale = true
}

// mapSource fans one Source's pin lists into the per-kind tables, keyed by
// enclosing namespace.
func (a *ApiMap) mapSource(src source.Source) {
	for _, p := range src.NamespacePins() {
		a.namespacePins[p.Namespace] = append(a.namespacePins[p.Namespace], p)
	}
	for _, p := range src.MethodPins() {
		a.methodPins[p.Namespace] = append(a.methodPins[p.Namespace], p)
	}
	for _, p := range src.AttributePins() {
		a.attrPins[p.Namespace] = append(a.attrPins[p.Namespace], p)
	}
	for _, p := range src.InstanceVariablePins() {
		a.ivarPins[p.Namespace] = append(a.ivarPins[p.Namespace], p)
	}
	for _, p := range src.ClassVariablePins() {
		a.cvarPins[p.Namespace] = append(a.cvarPins[p.Namespace], p)
	}
	for _, p := range src.ConstantPins() {
		a.constPins[p.Namespace] = append(a.constPins[p.Namespace], p)
	}
	a.symbolPins = append(a.symbolPins, src.SymbolPins()...)
}

// processVirtual reprocesses after an overlay change by running the full
// processMaps rebuild; Sources already loaded are not re-read from disk.
func (a *ApiMap) processVirtual() {
	a.processMaps()
}

// eliminate drops every pin whose filename matches from every pin table.
// Symbol pins are retained — see the Open Questions note in DESIGN.md.
func (a *ApiMap) eliminate(filename string) {
	delete(a.sources, filename)
	delete(a.mtimes, filename)
	source.Evict(filename)

	for fqn, nodes := range a.namespaceMap {
		a.namespaceMap[fqn] = filterNodes(nodes, filename)
		if len(a.namespaceMap[fqn]) == 0 {
			delete(a.namespaceMap, fqn)
		}
	}
	a.namespacePins = filterByFilename(a.namespacePins, filename)
	a.methodPins = filterByFilename(a.methodPins, filename)
	a.attrPins = filterByFilename(a.attrPins, filename)
	a.ivarPins = filterByFilename(a.ivarPins, filename)
	a.cvarPins = filterByFilename(a.cvarPins, filename)
	a.constPins = filterByFilename(a.constPins, filename)
	// symbolPins intentionally not filtered: see spec.md §9 Open Questions.

	a.stale = true
}

func filterByFilename(m map[string][]pin.Pin, filename string) map[string][]pin.Pin {
	out := map[string][]pin.Pin{}
	for fqn, pins := range m {
		var kept []pin.Pin
		for _, p := range pins {
			if p.Filename != filename {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			out[fqn] = kept
		}
	}
	return out
}

func filterNodes(nodes []pin.Node, filename string) []pin.Node {
	var kept []pin.Node
	for _, n := range nodes {
		if n.Filename() != filename {
			kept = append(kept, n)
		}
	}
	return kept
}
