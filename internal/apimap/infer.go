package apimap

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/apimap/internal/pin"
)

// selfReturningMethods never change the current type: they return the
// receiver itself.
var selfReturningMethods = map[string]bool{
	"tap": true, "itself": true, "freeze": true, "dup": true, "clone": true,
}

// subtypeReturningMethods return a container's element type, when the
// current type is written `Outer<Element>`.
var subtypeReturningMethods = map[string]bool{
	"first": true, "last": true, "sample": true, "pop": true, "shift": true, "at": true,
}

func wrapClass(fqn string) string  { return "Class<" + fqn + ">" }
func wrapModule(fqn string) string { return "Module<" + fqn + ">" }

// unwrapClass reports whether t is `Class<X>` and returns X.
func unwrapClass(t string) (string, bool) {
	if strings.HasPrefix(t, "Class<") && strings.HasSuffix(t, ">") {
		return t[len("Class<") : len(t)-1], true
	}
	return "", false
}

func containerElement(t string) (string, bool) {
	open := strings.Index(t, "<")
	if open < 0 || !strings.HasSuffix(t, ">") {
		return "", false
	}
	inner := t[open+1 : len(t)-1]
	if idx := strings.Index(inner, ","); idx >= 0 {
		inner = inner[:idx]
	}
	return strings.TrimSpace(inner), inner != ""
}

const classSideSuffix = "#class"

// InferSignatureType converts a dot-separated chain into a type string,
// implementing spec.md §4.4. Results are memoized on (signature, namespace,
// scope).
func (a *ApiMap) InferSignatureType(signature, namespace string, scope pin.Scope) string {
	a.Refresh(false)
	key := signatureKey{signature: signature, namespace: namespace, scope: scope}
	if v, ok := a.cache.getSignature(key); ok {
		return v
	}
	v := a.inferSignatureType(signature, namespace, scope)
	a.cache.putSignature(key, v)
	return v
}

func (a *ApiMap) inferSignatureType(signature, namespace string, scope pin.Scope) string {
	if strings.HasSuffix(namespace, classSideSuffix) {
		flipped := pin.ScopeInstance
		if scope == pin.ScopeInstance {
			flipped = pin.ScopeClass
		}
		return a.inferSignatureType(signature, strings.TrimSuffix(namespace, classSideSuffix), flipped)
	}

	if signature == "" {
		if scope == pin.ScopeInstance {
			return namespace
		}
		return wrapClass(namespace)
	}

	head, tail, hasTail := cutFirstDot(signature)

	var curType string
	curScope := pin.ScopeInstance

	switch {
	case strings.HasPrefix(head, "@@"):
		curType = a.InferClassVariable(head, namespace, scope)
	case strings.HasPrefix(head, "@"):
		curType = a.InferInstanceVariable(head, namespace, scope)
	case head == "self":
		curType = namespace
		curScope = scope
	case isLiteralAtom(head):
		curType = literalAtomType(head)
	default:
		if fqn := a.findFQN(head, namespace, map[string]bool{}); fqn != "" {
			if a.namespaceTypeOf(fqn) == "module" {
				curType = wrapModule(fqn)
			} else {
				curType = wrapClass(fqn)
			}
			curScope = pin.ScopeClass
		} else {
			curType, curScope = a.resolveCallReturn(head, namespace, scope, false)
		}
	}

	if !hasTail {
		return terminal(curType, curScope)
	}
	return a.innerInferSignatureType(tail, curType, curScope)
}

// innerInferSignatureType walks the remaining dot-separated segments,
// spec.md §4.4 step 4.
func (a *ApiMap) innerInferSignatureType(tail string, curType string, curScope pin.Scope) string {
	segments := strings.Split(tail, ".")
	for i, seg := range segments {
		if seg == "self" && i == 0 {
			continue
		}
		if unwrapped, ok := unwrapClass(curType); ok {
			curType = unwrapped
			curScope = pin.ScopeClass
		}
		if seg == "new" && curScope == pin.ScopeClass {
			curScope = pin.ScopeInstance
			continue
		}
		var hasArgs bool
		seg, hasArgs = stripCallArgs(seg)
		curType, _ = a.resolveCallReturn(seg, curType, curScope, hasArgs)
		curScope = pin.ScopeInstance
	}
	return terminal(curType, curScope)
}

func terminal(curType string, curScope pin.Scope) string {
	if curScope == pin.ScopeClass && curType != "" {
		if _, ok := unwrapClass(curType); !ok {
			return wrapClass(curType)
		}
	}
	return curType
}

// resolveCallReturn resolves name as a method name against
// typeOrNamespace+scope (or, when typeOrNamespace is a type string such as
// `Class<X>` or `Module<X>`, against X at class scope) and returns its type plus the
// scope the following segment should be evaluated at.
func (a *ApiMap) resolveCallReturn(name, typeOrNamespace string, scope pin.Scope, hasArgs bool) (string, pin.Scope) {
	fqn := typeOrNamespace
	if unwrapped, ok := unwrapClass(typeOrNamespace); ok {
		fqn = unwrapped
		scope = pin.ScopeClass
	} else if strings.HasPrefix(typeOrNamespace, "Module<") && strings.HasSuffix(typeOrNamespace, ">") {
		fqn = typeOrNamespace[len("Module<") : len(typeOrNamespace)-1]
		scope = pin.ScopeClass
	}

	var candidates []pin.Pin
	if scope == pin.ScopeClass {
		candidates = a.innerGet(fqn, fqn, pin.Private, pin.ScopeClass, map[string]bool{})
	} else {
		candidates = a.innerGet(fqn, fqn, pin.Private, pin.ScopeInstance, map[string]bool{})
	}

	var match *pin.Pin
	for i := range candidates {
		if candidates[i].Name == name {
			match = &candidates[i]
			break
		}
	}

	if macro, ok := a.methodMacro(fqn, name); ok && hasArgs {
		return macro, pin.ScopeInstance
	}
	if selfReturningMethods[name] {
		return typeOrNamespace, pin.ScopeInstance
	}
	if subtypeReturningMethods[name] {
		if elem, ok := containerElement(fqn); ok {
			return elem, pin.ScopeInstance
		}
	}
	if match != nil {
		return match.ReturnType, pin.ScopeInstance
	}
	return "", pin.ScopeInstance
}

func (a *ApiMap) methodMacro(fqn, name string) (string, bool) {
	for _, f := range a.workspaceFiles {
		if src, ok := a.sources[f]; ok {
			if t, ok := src.PathMacros()[fqn+"#"+name]; ok {
				return t, true
			}
		}
	}
	if a.virtualSource != nil {
		if t, ok := a.virtualSource.PathMacros()[fqn+"#"+name]; ok {
			return t, true
		}
	}
	return "", false
}

func (a *ApiMap) namespaceTypeOf(fqn string) string {
	if t := a.localNamespaceType(fqn); t != "" {
		return t
	}
	return a.yard.GetNamespaceType(fqn)
}

// InferInstanceVariable resolves `@name`'s declared type within namespace,
// spec.md §4.4 step 3. Pins are matched by namespace and name only; scope
// is not consulted.
func (a *ApiMap) InferInstanceVariable(atName, namespace string, scope pin.Scope) string {
	name := strings.TrimPrefix(atName, "@")
	for _, p := range a.ivarPins[namespace] {
		if p.Name == name {
			return p.ReturnType
		}
	}
	return ""
}

// InferClassVariable resolves `@@name`'s declared type within namespace.
func (a *ApiMap) InferClassVariable(atName, namespace string, scope pin.Scope) string {
	name := strings.TrimPrefix(atName, "@@")
	for _, p := range a.cvarPins[namespace] {
		if p.Name == name {
			return p.ReturnType
		}
	}
	return ""
}

// InferAssignmentNodeType infers the type of an `= rhs` assignment's
// right-hand side, applying the self-reference guard of spec.md §4.4: if
// rhs's first segment equals targetName, recursion is broken and "" is
// returned. node identifies the assignment for caching purposes.
func (a *ApiMap) InferAssignmentNodeType(node pin.Node, namespace, targetName, rhs string, scope pin.Scope) string {
	key := assignmentKey{node: node, namespace: namespace}
	if v, ok := a.cache.getAssignment(key); ok {
		return v
	}

	head, _, _ := cutFirstDot(rhs)
	if head == targetName {
		a.cache.putAssignment(key, "")
		return ""
	}

	if isLiteralAtom(rhs) {
		v := literalAtomType(rhs)
		a.cache.putAssignment(key, v)
		return v
	}

	v := a.InferSignatureType(rhs, namespace, scope)
	a.cache.putAssignment(key, v)
	return v
}

func cutFirstDot(s string) (head, tail string, hasTail bool) {
	idx := strings.Index(s, ".")
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// stripCallArgs removes a trailing `(...)` argument list from a signature
// segment, reporting whether one was present — infer_signature_type only
// sees dot-separated atoms, but a method call atom may still carry its
// argument list for the macro/hasArgs check in step 4.
func stripCallArgs(seg string) (string, bool) {
	if idx := strings.Index(seg, "("); idx >= 0 && strings.HasSuffix(seg, ")") {
		return seg[:idx], true
	}
	return seg, false
}

func isLiteralAtom(atom string) bool {
	if atom == "" {
		return false
	}
	switch {
	case atom == "true" || atom == "false" || atom == "nil":
		return true
	case strings.HasPrefix(atom, "\"") || strings.HasPrefix(atom, "'"):
		return true
	case strings.HasPrefix(atom, ":"):
		return true
	case strings.HasPrefix(atom, "[") || strings.HasPrefix(atom, "{"):
		return true
	default:
		if _, err := strconv.ParseFloat(atom, 64); err == nil {
			return true
		}
		return false
	}
}

func literalAtomType(atom string) string {
	switch {
	case atom == "true" || atom == "false":
		return "Boolean"
	case atom == "nil":
		return "NilClass"
	case strings.HasPrefix(atom, "\"") || strings.HasPrefix(atom, "'"):
		return "String"
	case strings.HasPrefix(atom, ":"):
		return "Symbol"
	case strings.HasPrefix(atom, "["):
		return "Array"
	case strings.HasPrefix(atom, "{"):
		return "Hash"
	default:
		if _, err := strconv.ParseInt(atom, 10, 64); err == nil {
			return "Integer"
		}
		if _, err := strconv.ParseFloat(atom, 64); err == nil {
			return "Float"
		}
		return ""
	}
}
