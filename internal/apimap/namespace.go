package apimap

import (
	"strings"

	"github.com/standardbeagle/apimap/internal/pin"
)

// FindFullyQualifiedNamespace resolves a possibly-relative name to its FQN,
// implementing spec.md §4.2. Innermost enclosing scope wins, then lexical
// include order at each level.
func (a *ApiMap) FindFullyQualifiedNamespace(name, root string) string {
	a.Refresh(false)
	return a.findFQN(name, root, map[string]bool{})
}

func (a *ApiMap) findFQN(name, root string, visited map[string]bool) string {
	if visited[root] {
		return ""
	}
	visited[root] = true

	if name == "" && root == "" {
		return ""
	}
	if name == "" {
		return a.findFQN(root, "", visited)
	}

	if root != "" {
		cur := root
		for cur != "" {
			if fqn := cur + "::" + name; a.hasNamespace(fqn) {
				return fqn
			}
			idx := strings.LastIndex(cur, "::")
			if idx < 0 {
				cur = ""
			} else {
				cur = cur[:idx]
			}
		}
	}

	if a.hasNamespace(name) {
		return name
	}
	for _, inc := range a.namespaceIncludes[""] {
		if fqn := a.findFQN(name, inc, visited); fqn != "" {
			return fqn
		}
	}

	if fqn := a.yard.FindFullyQualifiedNamespace(name, root); fqn != "" {
		return fqn
	}
	if fqns := a.live.GetFQNs(name, root); len(fqns) > 0 {
		return fqns[0]
	}
	return ""
}

func (a *ApiMap) hasNamespace(fqn string) bool {
	if fqn == "" {
		return false // namespace_map[""] is never populated, spec.md §3 invariant 4
	}
	_, ok := a.namespaceMap[fqn]
	return ok
}

// NamespaceExists reports whether name resolves to a known namespace,
// either in the workspace index or via YardMap/LiveMap.
func (a *ApiMap) NamespaceExists(name, root string) bool {
	return a.FindFullyQualifiedNamespace(name, root) != ""
}

// Namespaces enumerates every FQN known to the workspace index.
func (a *ApiMap) Namespaces() []string {
	a.Refresh(false)
	out := make([]string, 0, len(a.namespaceMap))
	for fqn := range a.namespaceMap {
		out = append(out, fqn)
	}
	return out
}

func parent(fqn string) string {
	idx := strings.LastIndex(fqn, "::")
	if idx < 0 {
		return ""
	}
	return fqn[:idx]
}

func lastSegment(fqn string) string {
	idx := strings.LastIndex(fqn, "::")
	if idx < 0 {
		return fqn
	}
	return fqn[idx+2:]
}

// GetConstants resolves namespace to its FQN (relative to root) and returns
// every constant visible there: its own constants and the classes/modules
// declared in it, plus those of enclosing scopes walked outward, merged with
// YardMap (spec.md §4.3). Private constants are included only when root is
// the resolved namespace itself.
func (a *ApiMap) GetConstants(namespace, root string) []pin.Pin {
	a.Refresh(false)

	fqn := namespace
	if fqn != "" {
		if resolved := a.FindFullyQualifiedNamespace(namespace, root); resolved != "" {
			fqn = resolved
		}
	}

	seen := map[pin.IdentityKey]bool{}
	var out []pin.Pin
	add := func(p pin.Pin) {
		if !seen[p.Identity()] {
			seen[p.Identity()] = true
			out = append(out, p)
		}
	}

	if fqn == "" {
		for _, p := range a.constPins[""] {
			add(p)
		}
		for _, p := range a.namespacePins[""] {
			add(p)
		}
	} else {
		cur := fqn
		first := true
		for {
			for _, p := range a.constPins[cur] {
				if p.Visibility == pin.Private && !(first && root == fqn) {
					continue
				}
				add(p)
			}
			for _, p := range a.namespacePins[cur] {
				add(p)
			}
			first = false
			if cur == "" {
				break
			}
			cur = parent(cur)
		}
	}

	for _, p := range a.yard.GetConstants(fqn) {
		add(p)
	}
	return out
}
