package apimap

import "github.com/standardbeagle/apimap/internal/pin"

// signatureKey is the (signature, namespace, scope) memoization key
// infer_signature_type is cached on (spec.md §4.4).
type signatureKey struct {
	signature string
	namespace string
	scope     pin.Scope
}

// assignmentKey is the (assignment-node, namespace) memoization key
// infer_assignment_node_type is cached on.
type assignmentKey struct {
	node      pin.Node
	namespace string
}

// cache is a plain map cleared on every process_maps; spec.md §9 says not to
// attempt per-entry invalidation since the index rebuild dominates cost.
type cache struct {
	signatures  map[signatureKey]string
	assignments map[assignmentKey]string
}

func newCache() *cache {
	return &cache{
		signatures:  map[signatureKey]string{},
		assignments: map[assignmentKey]string{},
	}
}

func (c *cache) clear() {
	c.signatures = map[signatureKey]string{}
	c.assignments = map[assignmentKey]string{}
}

func (c *cache) getSignature(k signatureKey) (string, bool) {
	v, ok := c.signatures[k]
	return v, ok
}

func (c *cache) putSignature(k signatureKey, v string) {
	c.signatures[k] = v
}

func (c *cache) getAssignment(k assignmentKey) (string, bool) {
	v, ok := c.assignments[k]
	return v, ok
}

func (c *cache) putAssignment(k assignmentKey, v string) {
	c.assignments[k] = v
}
