package config

import "github.com/sblinch/kdl-go/document"

// nodeName, stringArgs follow the donor project's own kdl-go document
// traversal helpers (internal/config/kdl_config.go): a KDL node's name
// comes from n.Name, and its string arguments may appear either inline
// (`include "**/*.rb" "**/*.erb"`) or as block children
// (`include { "**/*.rb" }`).
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func stringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func firstStringArg(n *document.Node) (string, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
