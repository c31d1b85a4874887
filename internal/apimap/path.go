package apimap

import (
	"strings"

	"github.com/standardbeagle/apimap/internal/apimap/suggestion"
	"github.com/standardbeagle/apimap/internal/pin"
)

// GetPathSuggestions resolves a path in the `A#m` / `A.m` / `A::B` grammar
// and returns matching pins merged with YardMap's own path lookup,
// spec.md §4.5.
func (a *ApiMap) GetPathSuggestions(path string) []pin.Pin {
	a.Refresh(false)

	var out []pin.Pin
	switch {
	case strings.Contains(path, "#"):
		idx := strings.Index(path, "#")
		ns, name := path[:idx], path[idx+1:]
		for _, p := range a.GetInstanceMethods(ns, ns, pin.Private) {
			if p.Name == name {
				out = append(out, p)
			}
		}
	case strings.Contains(path, "."):
		idx := strings.LastIndex(path, ".")
		ns, name := path[:idx], path[idx+1:]
		for _, p := range a.GetMethods(ns, ns, pin.Private) {
			if p.Name == name {
				out = append(out, p)
			}
		}
	default:
		ns := parent(path)
		name := lastSegment(path)
		for _, p := range a.namespacePins[ns] {
			if p.Name == name {
				out = append(out, p)
			}
		}
		for _, p := range a.constPins[ns] {
			if p.Name == name {
				out = append(out, p)
			}
		}
	}

	out = append(out, a.yard.Objects(path)...)
	return out
}

// rakeYard lazily runs the YARD-doc assembler once per stale cycle, per
// spec.md §4.5. In this implementation that assembler is YardMap's own
// archive load, already performed at construction; the lazy trigger here
// only marks the cycle consumed so Search/Document don't re-trigger it.
func (a *ApiMap) rakeYard() {
	if !a.yardStale {
		return
	}
	a.yardStale = false
}

// Search runs a case-insensitive substring match on every known code-object
// path: workspace pins plus YardMap's own search, spec.md §4.5.
func (a *ApiMap) Search(query string) []pin.Pin {
	a.Refresh(false)
	a.rakeYard()

	q := strings.ToLower(query)
	var out []pin.Pin
	match := func(pins []pin.Pin) {
		for _, p := range pins {
			if strings.Contains(strings.ToLower(p.Path()), q) {
				out = append(out, p)
			}
		}
	}
	for _, pins := range a.namespacePins {
		match(pins)
	}
	for _, pins := range a.methodPins {
		match(pins)
	}
	for _, pins := range a.constPins {
		match(pins)
	}
	out = append(out, a.yard.Search(query)...)
	return out
}

// Document returns the code object(s) at path, from the workspace index and
// from YardMap, spec.md §4.5.
func (a *ApiMap) Document(path string) []suggestion.Suggestion {
	a.Refresh(false)
	a.rakeYard()

	var out []suggestion.Suggestion
	for _, p := range a.GetPathSuggestions(path) {
		out = append(out, pinToSuggestion(p))
	}
	for _, p := range a.yard.Document(path) {
		out = append(out, pinToSuggestion(p))
	}
	return out
}

func pinToSuggestion(p pin.Pin) suggestion.Suggestion {
	kind := suggestion.KindMethod
	switch p.Kind {
	case pin.KindConstant:
		kind = suggestion.KindConstant
	case pin.KindNamespace:
		if p.NamespaceType == "module" {
			kind = suggestion.KindModule
		} else {
			kind = suggestion.KindClass
		}
	case pin.KindAttribute:
		kind = suggestion.KindField
	case pin.KindInstanceVariable, pin.KindClassVariable, pin.KindGlobalVariable:
		kind = suggestion.KindVariable
	}

	var params []suggestion.Parameter
	for _, pr := range p.Parameters {
		params = append(params, suggestion.Parameter{
			Name: pr.Name, Decl: pr.Decl, HasType: pr.Type != "", Type: pr.Type,
		})
	}

	location := ""
	if p.Node != nil {
		location = p.Node.Location()
	}

	return suggestion.Suggestion{
		Label:      p.Name,
		Kind:       kind,
		Detail:     p.Path(),
		Docstring:  p.Docstring,
		ReturnType: p.ReturnType,
		Parameters: params,
		Path:       p.Path(),
		Location:   location,
	}
}
