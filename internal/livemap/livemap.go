// Package livemap adapts the runtime-introspection plugin channel — the
// LiveMap contract of spec.md §6 — to a Model Context Protocol server. The
// target language's runtime can expose a live process's defined constants
// and methods through an MCP tool; LiveMap calls that tool and turns its
// result into Suggestions. Any failure (no server configured, tool call
// error, malformed response) degrades to an empty result: LiveMap is
// explicitly opportunistic (spec.md §2 table, row 6).
package livemap

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/apimap/internal/apimap/suggestion"
)

// LiveMap is the contract ApiMap consumes.
type LiveMap interface {
	GetFQNs(name, root string) []string
	GetMethods(fqns, root string, kind string, includePrivate bool) []suggestion.Suggestion
	Refresh() error
}

// Null is a LiveMap with nothing behind it: every query returns empty. It
// is the default used when no runtime-introspection plugin is configured.
type Null struct{}

func (Null) GetFQNs(string, string) []string { return nil }
func (Null) GetMethods(string, string, string, bool) []suggestion.Suggestion {
	return nil
}
func (Null) Refresh() error { return nil }

var _ LiveMap = Null{}

// symbolResult mirrors the JSON a "describe_live_symbols" MCP tool is
// expected to return for a given namespace.
type symbolResult struct {
	FQNs    []string `json:"fqns"`
	Methods []struct {
		Name       string   `json:"name"`
		ReturnType string   `json:"return_type"`
		Params     []string `json:"parameters"`
	} `json:"methods"`
}

// MCP is a LiveMap backed by a connected MCP client session. Callers obtain
// the session by dialing the runtime plugin's transport (stdio or SSE) with
// the go-sdk's mcp.NewClient/Connect and passing the resulting session here.
type MCP struct {
	Session *mcp.ClientSession
	Timeout time.Duration
}

var _ LiveMap = (*MCP)(nil)

func (m *MCP) callTool(ctx context.Context, toolName string, args map[string]any) (symbolResult, bool) {
	var result symbolResult
	if m == nil || m.Session == nil {
		return result, false
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := m.Session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
	if err != nil || res == nil || res.IsError {
		return result, false
	}
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(tc.Text), &result); err == nil {
			return result, true
		}
	}
	return result, false
}

func (m *MCP) GetFQNs(name, root string) []string {
	result, ok := m.callTool(context.Background(), "resolve_live_namespace", map[string]any{
		"name": name, "root": root,
	})
	if !ok {
		return nil
	}
	return result.FQNs
}

func (m *MCP) GetMethods(fqns, root string, kind string, includePrivate bool) []suggestion.Suggestion {
	result, ok := m.callTool(context.Background(), "describe_live_symbols", map[string]any{
		"fqns": fqns, "root": root, "kind": kind, "include_private": includePrivate,
	})
	if !ok {
		return nil
	}
	out := make([]suggestion.Suggestion, 0, len(result.Methods))
	for _, meth := range result.Methods {
		out = append(out, suggestion.Suggestion{
			Label:      meth.Name,
			Kind:       suggestion.KindMethod,
			ReturnType: meth.ReturnType,
			Detail:     fqns + "#" + meth.Name,
		})
	}
	return out
}

func (m *MCP) Refresh() error {
	if m == nil || m.Session == nil {
		return nil
	}
	_, err := m.Session.ListTools(context.Background(), &mcp.ListToolsParams{})
	return err
}
