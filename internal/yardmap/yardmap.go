// Package yardmap adapts an externally-generated documentation archive —
// the YardMap contract of spec.md §6 — to the shapes ApiMap needs: constant
// and method listings by fully qualified name, namespace-type lookup, and
// path-based search/document. The concrete implementation here loads the
// archive from a YAML file at construction time, the format the target
// language's documentation generator (YARD) emits for bundled library docs.
package yardmap

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/apimap/internal/pin"
)

// YardMap is the contract ApiMap consumes (spec.md §6). Every method
// returns an empty result when the archive has nothing for the query,
// never an error — unresolved names are not a failure mode (spec.md §7).
type YardMap interface {
	GetConstants(fqn string) []pin.Pin
	GetMethods(fqn, root string, visibility pin.Visibility) []pin.Pin
	GetInstanceMethods(fqn, root string, visibility pin.Visibility) []pin.Pin
	GetNamespaceType(fqn string) string // "class" | "module" | ""
	FindFullyQualifiedNamespace(name, root string) string
	Objects(path string) []pin.Pin
	Search(query string) []pin.Pin
	Document(path string) []pin.Pin
	Required() []string
}

// entry is one archive record, matching the on-disk YAML shape.
type entry struct {
	Path       string   `yaml:"path"`
	Kind       string   `yaml:"kind"` // "namespace" | "method" | "constant"
	Namespace  string   `yaml:"namespace"`
	Name       string   `yaml:"name"`
	Scope      string   `yaml:"scope"`      // "class" | "instance"
	Visibility string   `yaml:"visibility"` // "public" | "protected" | "private"
	ReturnType string   `yaml:"return_type"`
	NSType     string   `yaml:"namespace_type"` // for kind=namespace
	Library    string   `yaml:"library"`
	Params     []string `yaml:"parameters"`
}

type archive struct {
	Library string  `yaml:"library"`
	Entries []entry `yaml:"entries"`
}

// Map is the file-backed YardMap implementation.
type Map struct {
	byNamespace    map[string][]entry
	byConstNS      map[string][]entry
	nsType         map[string]string
	libraries      []string
	all            []entry
}

var _ YardMap = (*Map)(nil)

// Empty is a YardMap with no archives loaded. Load starts from it, and
// apimap.New uses it when no YardMap is supplied — resolution proceeds
// without library documentation (spec.md §7 "Unknown library").
func Empty() *Map {
	return &Map{byNamespace: map[string][]entry{}, byConstNS: map[string][]entry{}, nsType: map[string]string{}}
}

// Load reads one or more archive files (one per required library) and
// merges them into a single Map. Unreadable or unparsable archives are
// skipped and returned in the second result for the caller to log; they do
// not prevent the rest from loading.
func Load(paths []string) (*Map, []error) {
	m := Empty()
	var errs []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var a archive
		if err := yaml.Unmarshal(data, &a); err != nil {
			errs = append(errs, err)
			continue
		}
		m.merge(a)
	}
	return m, errs
}

func (m *Map) merge(a archive) {
	if a.Library != "" {
		m.libraries = append(m.libraries, a.Library)
	}
	for _, e := range a.Entries {
		m.all = append(m.all, e)
		switch e.Kind {
		case "namespace":
			m.nsType[e.Path] = e.NSType
		case "constant":
			m.byConstNS[e.Namespace] = append(m.byConstNS[e.Namespace], e)
		default:
			m.byNamespace[e.Namespace] = append(m.byNamespace[e.Namespace], e)
		}
	}
}

func toPin(e entry) pin.Pin {
	k := pin.KindMethod
	scope := pin.ScopeInstance
	if e.Scope == "class" {
		scope = pin.ScopeClass
	}
	vis := pin.Public
	switch e.Visibility {
	case "protected":
		vis = pin.Protected
	case "private":
		vis = pin.Private
	}
	if e.Kind == "constant" {
		k = pin.KindConstant
	}
	var params []pin.Parameter
	for _, p := range e.Params {
		params = append(params, pin.Parameter{Name: p, Decl: p})
	}
	return pin.Pin{
		Kind: k, Filename: "yard:" + e.Library, Namespace: e.Namespace, Name: e.Name,
		Scope: scope, Visibility: vis, ReturnType: e.ReturnType, Parameters: params,
	}
}

func (m *Map) GetConstants(fqn string) []pin.Pin {
	var out []pin.Pin
	for _, e := range m.byConstNS[fqn] {
		out = append(out, toPin(e))
	}
	return out
}

func (m *Map) getMethods(fqn string, scope pin.Scope, visibility pin.Visibility) []pin.Pin {
	var out []pin.Pin
	for _, e := range m.byNamespace[fqn] {
		eScope := pin.ScopeInstance
		if e.Scope == "class" {
			eScope = pin.ScopeClass
		}
		if eScope != scope {
			continue
		}
		eVis := pin.Public
		switch e.Visibility {
		case "protected":
			eVis = pin.Protected
		case "private":
			eVis = pin.Private
		}
		if visibility == pin.Public && eVis != pin.Public {
			continue
		}
		out = append(out, toPin(e))
	}
	return out
}

func (m *Map) GetMethods(fqn, _ string, visibility pin.Visibility) []pin.Pin {
	return m.getMethods(fqn, pin.ScopeClass, visibility)
}

func (m *Map) GetInstanceMethods(fqn, _ string, visibility pin.Visibility) []pin.Pin {
	return m.getMethods(fqn, pin.ScopeInstance, visibility)
}

func (m *Map) GetNamespaceType(fqn string) string {
	return m.nsType[fqn]
}

func (m *Map) FindFullyQualifiedNamespace(name, _ string) string {
	if _, ok := m.nsType[name]; ok {
		return name
	}
	return ""
}

func (m *Map) Objects(path string) []pin.Pin {
	var out []pin.Pin
	for _, e := range m.all {
		if e.Path == path {
			out = append(out, toPin(e))
		}
	}
	return out
}

func (m *Map) Search(query string) []pin.Pin {
	q := strings.ToLower(query)
	var out []pin.Pin
	for _, e := range m.all {
		if strings.Contains(strings.ToLower(e.Path), q) {
			out = append(out, toPin(e))
		}
	}
	return out
}

func (m *Map) Document(path string) []pin.Pin {
	return m.Objects(path)
}

func (m *Map) Required() []string {
	return m.libraries
}
