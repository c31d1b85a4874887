// Package source defines the contract the ApiMap core consumes for a parsed
// file (Source), plus a small concrete implementation (TextSource) used by
// the CLI and by tests. Parsing and AST construction are explicitly out of
// the core's scope (spec.md §1); TextSource exists only so the rest of the
// repository has something real to index.
package source

import (
	"time"

	"github.com/standardbeagle/apimap/internal/pin"
)

// Docstring is the documentation comment attached to a declaration.
type Docstring struct {
	Summary string
	Tags    map[string]string
}

// Source is a read-only view of one parsed file. ApiMap never mutates a
// Source; it only reads its pins and its include/extend/superclass edges.
type Source interface {
	Filename() string
	Mtime() time.Time

	// Root is the file's root AST node.
	Root() pin.Node

	// NamespaceNodes maps a namespace FQN to every AST node that reopens it
	// in this file.
	NamespaceNodes() map[string][]pin.Node

	// NamespaceIncludes maps a namespace FQN to the mixin target names it
	// `include`s, as written (unresolved).
	NamespaceIncludes() map[string][]string

	// NamespaceExtends maps a namespace FQN to the singleton-mixin target
	// names it `extend`s, as written (unresolved).
	NamespaceExtends() map[string][]string

	// Superclasses maps a namespace FQN to its declared parent class name,
	// as written (unresolved).
	Superclasses() map[string]string

	// Required lists the library names this file declares a dependency on.
	Required() []string

	// PathMacros lists `@!macro`-style declarative return-type mappings
	// keyed by method path, consulted by infer_signature_type step 4.
	PathMacros() map[string]string

	MethodPins() []pin.Pin
	AttributePins() []pin.Pin
	InstanceVariablePins() []pin.Pin
	ClassVariablePins() []pin.Pin
	ConstantPins() []pin.Pin
	GlobalVariablePins() []pin.Pin
	SymbolPins() []pin.Pin
	NamespacePins() []pin.Pin

	// Include reports whether node lies within this Source's tree, used to
	// scope "is this call from inside the same namespace" protected checks.
	Include(node pin.Node) bool

	// DocstringFor returns the docstring attached to node, if any.
	DocstringFor(node pin.Node) *Docstring

	// CodeFor returns the literal source text spanned by node.
	CodeFor(node pin.Node) string
}

// AllPins returns every pin this Source declares, across all kinds.
func AllPins(s Source) []pin.Pin {
	var out []pin.Pin
	out = append(out, s.NamespacePins()...)
	out = append(out, s.MethodPins()...)
	out = append(out, s.AttributePins()...)
	out = append(out, s.InstanceVariablePins()...)
	out = append(out, s.ClassVariablePins()...)
	out = append(out, s.ConstantPins()...)
	out = append(out, s.GlobalVariablePins()...)
	out = append(out, s.SymbolPins()...)
	return out
}
