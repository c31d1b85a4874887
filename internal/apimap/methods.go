package apimap

import (
	"github.com/standardbeagle/apimap/internal/apimap/suggestion"
	"github.com/standardbeagle/apimap/internal/pin"
)

// universalParent is the built-in ancestor every class or module bottoms
// out at, consulted when YardMap has nothing for fqns itself (spec.md
// §4.3 step 5).
func universalParent(nsType string) string {
	if nsType == "module" {
		return "Module"
	}
	return "Object"
}

// GetMethods returns the singleton (class-scope) methods visible on fqns,
// as seen from root, limited to visibility.
func (a *ApiMap) GetMethods(fqns, root string, visibility pin.Visibility) []pin.Pin {
	a.Refresh(false)
	out := a.innerGet(fqns, root, visibility, pin.ScopeClass, map[string]bool{})
	out = a.synthesizeNew(fqns, out)
	if fqns == "" && root == "" {
		out = a.foldDomains(out, visibility, pin.ScopeClass)
	}
	return a.unionLiveMap(out, fqns, root, "class", visibility != pin.Public)
}

// GetInstanceMethods returns the instance methods visible on fqns.
func (a *ApiMap) GetInstanceMethods(fqns, root string, visibility pin.Visibility) []pin.Pin {
	a.Refresh(false)
	out := a.innerGet(fqns, root, visibility, pin.ScopeInstance, map[string]bool{})
	if fqns == "" && root == "" {
		out = a.foldDomains(out, visibility, pin.ScopeInstance)
	}
	return a.unionLiveMap(out, fqns, root, "instance", visibility != pin.Public)
}

func (a *ApiMap) foldDomains(out []pin.Pin, visibility pin.Visibility, scope pin.Scope) []pin.Pin {
	for _, d := range a.cfg.Domains {
		extra := a.innerGet(d, "", visibility, scope, map[string]bool{})
		out = mergeByLabel(out, extra)
	}
	return out
}

func (a *ApiMap) unionLiveMap(out []pin.Pin, fqns, root, kind string, includePrivate bool) []pin.Pin {
	names := map[string]bool{}
	for _, p := range out {
		names[p.Name] = true
	}
	for _, s := range a.live.GetMethods(fqns, root, kind, includePrivate) {
		if names[s.Label] {
			continue
		}
		names[s.Label] = true
		out = append(out, suggestionToPin(s, fqns))
	}
	return out
}

func suggestionToPin(s suggestion.Suggestion, fqns string) pin.Pin {
	var params []pin.Parameter
	for _, p := range s.Parameters {
		params = append(params, pin.Parameter{Name: p.Name, Decl: p.Decl, Type: p.Type})
	}
	return pin.Pin{
		Kind: pin.KindMethod, Namespace: fqns, Name: s.Label,
		ReturnType: s.ReturnType, Parameters: params, Docstring: s.Docstring,
	}
}

// innerGet is the shared walker spec.md §4.3 describes for both
// get_methods and get_instance_methods: direct pins, then the superclass
// chain, then mixins, with a visited set to break diamond cycles.
func (a *ApiMap) innerGet(fqns, root string, visibility pin.Visibility, scope pin.Scope, visited map[string]bool) []pin.Pin {
	if visited[fqns] {
		return nil
	}
	visited[fqns] = true

	var out []pin.Pin

	// 1. Pins declared directly on fqns.
	for _, p := range byScope(a.methodPins[fqns], scope) {
		if visibilityAllowed(p.Visibility, visibility) {
			out = append(out, p)
		}
	}

	// 2. Superclass chain (singleton methods do not inherit across
	// superclasses in this grammar; only instance-scope climbs). The
	// per-hop visibility rule below (public always crosses, protected only
	// for the declaring class itself, private never) applies regardless of
	// the visibility level requested by the caller, so the climb itself is
	// not gated on it: a "give me everything" (private-level) query still
	// needs ancestors' public methods.
	if scope == pin.ScopeInstance {
		hop := fqns
		for {
			super, ok := a.superclasses[hop]
			if !ok || super == "" {
				break
			}
			superFQN := a.findFQN(super, hop, map[string]bool{})
			if superFQN == "" || visited[superFQN] {
				break
			}
			visited[superFQN] = true
			for _, p := range byScope(a.methodPins[superFQN], scope) {
				if p.Visibility == pin.Private {
					continue
				}
				if p.Visibility == pin.Protected && superFQN != root {
					continue
				}
				out = append(out, p)
			}
			hop = superFQN
		}
	}

	// 3. Mixins: include contributes instance methods, extend contributes
	// singleton methods, each resolved under fqns's own scope first.
	if scope == pin.ScopeInstance {
		for _, target := range a.namespaceIncludes[fqns] {
			if resolved := a.findFQN(target, fqns, map[string]bool{}); resolved != "" {
				out = mergeByLabel(out, a.innerGet(resolved, root, visibility, pin.ScopeInstance, visited))
			}
		}
	} else {
		for _, target := range a.namespaceExtends[fqns] {
			if resolved := a.findFQN(target, fqns, map[string]bool{}); resolved != "" {
				out = mergeByLabel(out, a.innerGet(resolved, root, visibility, pin.ScopeInstance, visited))
			}
		}
	}

	// 5. Union with YardMap, falling back to the universal parent when
	// YardMap has nothing for fqns itself.
	var yardPins []pin.Pin
	if scope == pin.ScopeClass {
		yardPins = a.yard.GetMethods(fqns, root, visibility)
	} else {
		yardPins = a.yard.GetInstanceMethods(fqns, root, visibility)
	}
	if len(yardPins) == 0 {
		nsType := a.yard.GetNamespaceType(fqns)
		if nsType == "" {
			nsType = a.localNamespaceType(fqns)
		}
		parentName := universalParent(nsType)
		if scope == pin.ScopeClass {
			yardPins = a.yard.GetMethods(parentName, root, visibility)
		} else {
			yardPins = a.yard.GetInstanceMethods(parentName, root, visibility)
		}
	}
	out = mergeByLabel(out, yardPins)

	return out
}

func (a *ApiMap) localNamespaceType(fqn string) string {
	for _, p := range a.namespacePins[parent(fqn)] {
		if p.Name == lastSegment(fqn) {
			return p.NamespaceType
		}
	}
	return ""
}

func byScope(pins []pin.Pin, scope pin.Scope) []pin.Pin {
	var out []pin.Pin
	for _, p := range pins {
		if p.Scope == scope {
			out = append(out, p)
		}
	}
	return out
}

func visibilityAllowed(have, requested pin.Visibility) bool {
	switch requested {
	case pin.Private:
		return true
	case pin.Protected:
		return have != pin.Private
	default:
		return have == pin.Public
	}
}

func mergeByLabel(base, extra []pin.Pin) []pin.Pin {
	seen := map[string]bool{}
	for _, p := range base {
		seen[p.Label()] = true
	}
	for _, p := range extra {
		if !seen[p.Label()] {
			seen[p.Label()] = true
			base = append(base, p)
		}
	}
	return base
}

// synthesizeNew replaces a `new` class-method pin with one whose
// parameters mirror `initialize`'s, per spec.md §4.3 step 6. If fqns
// defines `initialize` but no `new` appears in pins, the synthesized pin is
// appended. When fqns defines no `initialize`, pins are returned unchanged.
func (a *ApiMap) synthesizeNew(fqns string, pins []pin.Pin) []pin.Pin {
	if fqns == "" {
		return pins
	}
	var initParams []pin.Parameter
	hasInit := false
	for _, p := range a.methodPins[fqns] {
		if p.Kind == pin.KindMethod && p.Name == "initialize" && p.Scope == pin.ScopeInstance {
			hasInit = true
			initParams = p.Parameters
			break
		}
	}
	if !hasInit {
		return pins
	}
	synthesized := pin.Pin{
		Kind: pin.KindMethod, Namespace: fqns, Name: "new",
		Scope: pin.ScopeClass, Visibility: pin.Public, Parameters: initParams,
		ReturnType: fqns,
	}
	out := make([]pin.Pin, 0, len(pins)+1)
	replaced := false
	for _, p := range pins {
		if p.Name == "new" && p.Scope == pin.ScopeClass {
			out = append(out, synthesized)
			replaced = true
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, synthesized)
	}
	return out
}
