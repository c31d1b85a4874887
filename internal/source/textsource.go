package source

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/standardbeagle/apimap/internal/pin"
)

// lineNode is the opaque AST handle TextSource hands out: a file and a
// 1-based line number. It carries no other structure — TextSource is a
// line-oriented scanner, not a real parser, which is exactly what spec.md
// §1 says the core does not need to own.
type lineNode struct {
	file string
	line int
}

func (n lineNode) Location() string {
	return fmt.Sprintf("%s:%d", n.file, n.line)
}

func (n lineNode) Filename() string {
	return n.file
}

// TextSource is a minimal concrete Source for a small subset of the target
// language's surface syntax: nested class/module declarations with a single
// superclass and include/extend edges, def/end method bodies, attr_* writer
// declarations, @ivar/@@cvar/CONST/$gvar literal assignments, bare symbol
// literals, and require statements. It exists so the rest of the repository
// — tests and the CLI — has a real Source to index; full parsing is
// explicitly out of the core's scope (spec.md §1).
type TextSource struct {
	filename string
	mtime    time.Time
	root     lineNode
	empty    bool

	namespaceNodes    map[string][]pin.Node
	namespaceIncludes map[string][]string
	namespaceExtends  map[string][]string
	superclasses      map[string]string
	required          []string
	pathMacros        map[string]string

	methods   []pin.Pin
	attrs     []pin.Pin
	ivars     []pin.Pin
	cvars     []pin.Pin
	consts    []pin.Pin
	gvars     []pin.Pin
	symbols   []pin.Pin
	namespace []pin.Pin

	docstrings map[int]*Docstring
	rawLines   []string
}

var _ Source = (*TextSource)(nil)

func (s *TextSource) Filename() string                        { return s.filename }
func (s *TextSource) Mtime() time.Time                         { return s.mtime }
func (s *TextSource) Root() pin.Node                           { return s.root }
func (s *TextSource) NamespaceNodes() map[string][]pin.Node    { return s.namespaceNodes }
func (s *TextSource) NamespaceIncludes() map[string][]string   { return s.namespaceIncludes }
func (s *TextSource) NamespaceExtends() map[string][]string    { return s.namespaceExtends }
func (s *TextSource) Superclasses() map[string]string          { return s.superclasses }
func (s *TextSource) Required() []string                       { return s.required }
func (s *TextSource) PathMacros() map[string]string             { return s.pathMacros }
func (s *TextSource) MethodPins() []pin.Pin                    { return s.methods }
func (s *TextSource) AttributePins() []pin.Pin                 { return s.attrs }
func (s *TextSource) InstanceVariablePins() []pin.Pin          { return s.ivars }
func (s *TextSource) ClassVariablePins() []pin.Pin             { return s.cvars }
func (s *TextSource) ConstantPins() []pin.Pin                  { return s.consts }
func (s *TextSource) GlobalVariablePins() []pin.Pin            { return s.gvars }
func (s *TextSource) SymbolPins() []pin.Pin                    { return s.symbols }
func (s *TextSource) NamespacePins() []pin.Pin                 { return s.namespace }

func (s *TextSource) Include(node pin.Node) bool {
	ln, ok := node.(lineNode)
	return ok && ln.file == s.filename
}

func (s *TextSource) DocstringFor(node pin.Node) *Docstring {
	ln, ok := node.(lineNode)
	if !ok {
		return nil
	}
	return s.docstrings[ln.line]
}

func (s *TextSource) CodeFor(node pin.Node) string {
	ln, ok := node.(lineNode)
	if !ok || ln.line < 1 || ln.line > len(s.rawLines) {
		return ""
	}
	return s.rawLines[ln.line-1]
}

func empty(filename string) *TextSource {
	return &TextSource{
		filename:          filename,
		mtime:             time.Now(),
		root:              lineNode{file: filename, line: 0},
		empty:             true,
		namespaceNodes:    map[string][]pin.Node{},
		namespaceIncludes: map[string][]string{},
		namespaceExtends:  map[string][]string{},
		superclasses:      map[string]string{},
		pathMacros:        map[string]string{},
		docstrings:        map[int]*Docstring{},
	}
}

// Load reads filename from disk and parses it. If the file cannot be read
// or parsed, it returns an empty Source carrying the original filename so
// later lookups don't dangle, and the error is returned for the caller to
// log to the diagnostic stream (spec.md §7) — it is never fatal.
func Load(filename string) (*TextSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return empty(filename), err
	}
	defer f.Close()
	info, statErr := f.Stat()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return empty(filename), err
	}

	src := parseLines(filename, lines)
	if statErr == nil {
		src.mtime = info.ModTime()
	}
	return src, nil
}

// Virtual builds a Source directly from in-memory code, used for the one
// overlay buffer (spec.md §5 "Overlay buffer").
func Virtual(code, filename string) *TextSource {
	return parseLines(filename, strings.Split(code, "\n"))
}

// Fix tolerates incomplete or mid-edit text by substituting a harmless
// identifier at the cursor offset before parsing, the way the Source
// contract's `fix` factory form is documented to behave (spec.md §6).
func Fix(code, filename string, cursor *int) *TextSource {
	if cursor != nil && *cursor >= 0 && *cursor <= len(code) {
		code = code[:*cursor] + "_fix_" + code[*cursor:]
	}
	return Virtual(code, filename)
}

type nsFrame struct {
	fqn   string
	line  int
	isDef bool // false while inside a `def ... end` body
}

func parseLines(filename string, lines []string) *TextSource {
	src := empty(filename)
	src.empty = false
	src.rawLines = lines

	var stack []nsFrame
	var defDepth int // >0 while inside a def body; suppresses class/module/include/extend/attr_* declarations, not variable or constant capture
	var pendingDoc []string

	currentNamespace := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1].fqn
	}

	flushDoc := func() *Docstring {
		if len(pendingDoc) == 0 {
			return nil
		}
		d := &Docstring{Summary: strings.Join(pendingDoc, " ")}
		pendingDoc = nil
		return d
	}

	for i, raw := range lines {
		lineNo := i + 1
		line := stripComment(raw)
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "#") {
			pendingDoc = append(pendingDoc, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")))
			continue
		}

		switch {
		case trimmed == "end":
			doc := flushDoc()
			_ = doc
			if defDepth > 0 {
				defDepth--
			} else if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue

		case strings.HasPrefix(trimmed, "require "):
			lib := unquote(strings.TrimSpace(strings.TrimPrefix(trimmed, "require")))
			if lib != "" {
				src.required = append(src.required, lib)
			}
			flushDoc()
			continue

		case strings.HasPrefix(trimmed, "class "):
			if defDepth > 0 {
				continue
			}
			name, super := parseClassHeader(strings.TrimPrefix(trimmed, "class "))
			fqn := qualify(currentNamespace(), name)
			node := lineNode{file: filename, line: lineNo}
			src.namespaceNodes[fqn] = append(src.namespaceNodes[fqn], node)
			src.namespace = append(src.namespace, pin.Pin{
				Kind: pin.KindNamespace, Filename: filename, Namespace: currentNamespace(),
				Name: name, Node: node, NamespaceType: "class", Docstring: docSummary(flushDoc()),
			})
			if super != "" {
				src.superclasses[fqn] = super
			}
			stack = append(stack, nsFrame{fqn: fqn, line: lineNo})
			continue

		case strings.HasPrefix(trimmed, "module "):
			if defDepth > 0 {
				continue
			}
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "module "))
			fqn := qualify(currentNamespace(), name)
			node := lineNode{file: filename, line: lineNo}
			src.namespaceNodes[fqn] = append(src.namespaceNodes[fqn], node)
			src.namespace = append(src.namespace, pin.Pin{
				Kind: pin.KindNamespace, Filename: filename, Namespace: currentNamespace(),
				Name: name, Node: node, NamespaceType: "module", Docstring: docSummary(flushDoc()),
			})
			stack = append(stack, nsFrame{fqn: fqn, line: lineNo})
			continue

		case strings.HasPrefix(trimmed, "include "):
			if defDepth > 0 {
				continue
			}
			target := strings.TrimSpace(strings.TrimPrefix(trimmed, "include "))
			ns := currentNamespace()
			src.namespaceIncludes[ns] = append(src.namespaceIncludes[ns], target)
			flushDoc()
			continue

		case strings.HasPrefix(trimmed, "extend "):
			if defDepth > 0 {
				continue
			}
			target := strings.TrimSpace(strings.TrimPrefix(trimmed, "extend "))
			ns := currentNamespace()
			src.namespaceExtends[ns] = append(src.namespaceExtends[ns], target)
			flushDoc()
			continue

		case strings.HasPrefix(trimmed, "attr_accessor "), strings.HasPrefix(trimmed, "attr_reader "), strings.HasPrefix(trimmed, "attr_writer "):
			if defDepth > 0 {
				continue
			}
			kind := strings.SplitN(trimmed, " ", 2)[0]
			names := parseSymbolList(trimmed[len(kind):])
			ns := currentNamespace()
			node := lineNode{file: filename, line: lineNo}
			for _, n := range names {
				params := []pin.Parameter(nil)
				if kind != "attr_reader" {
					params = []pin.Parameter{{Name: "value", Decl: "value"}}
				}
				src.attrs = append(src.attrs, pin.Pin{
					Kind: pin.KindAttribute, Filename: filename, Namespace: ns, Name: n,
					Scope: pin.ScopeInstance, Visibility: pin.Public, Node: node, Parameters: params,
				})
			}
			flushDoc()
			continue

		case strings.HasPrefix(trimmed, "def "):
			name, scope, params, ret := parseDefHeader(strings.TrimPrefix(trimmed, "def "))
			ns := currentNamespace()
			node := lineNode{file: filename, line: lineNo}
			doc := flushDoc()
			src.methods = append(src.methods, pin.Pin{
				Kind: pin.KindMethod, Filename: filename, Namespace: ns, Name: name,
				Scope: scope, Visibility: pin.Public, ReturnType: ret, Parameters: params,
				Node: node, Docstring: docSummary(doc),
			})
			if doc != nil {
				src.docstrings[lineNo] = doc
			}
			defDepth++
			continue
		}

		// Variable/constant assignments and symbol literals are captured
		// regardless of method-body depth: `@x = 5` inside `initialize` is
		// the ordinary place an instance variable gets declared. Only the
		// namespace-opening and mixin/attr declarations above are gated on
		// defDepth, since this line-oriented scanner has no way to tell a
		// nested `class`/`def` apart from a string containing the keyword.

		if name, lit := matchAssignment(trimmed, "@@"); name != "" {
			src.cvars = append(src.cvars, pin.Pin{
				Kind: pin.KindClassVariable, Filename: filename, Namespace: currentNamespace(),
				Name: name, Scope: pin.ScopeClass, ReturnType: literalType(lit),
				Node: lineNode{file: filename, line: lineNo},
			})
			continue
		}
		if name, lit := matchAssignment(trimmed, "@"); name != "" {
			src.ivars = append(src.ivars, pin.Pin{
				Kind: pin.KindInstanceVariable, Filename: filename, Namespace: currentNamespace(),
				Name: name, Scope: pin.ScopeInstance, ReturnType: literalType(lit),
				Node: lineNode{file: filename, line: lineNo},
			})
			continue
		}
		if name, lit := matchAssignment(trimmed, "$"); name != "" {
			src.gvars = append(src.gvars, pin.Pin{
				Kind: pin.KindGlobalVariable, Filename: filename, Namespace: "",
				Name: name, ReturnType: literalType(lit),
				Node: lineNode{file: filename, line: lineNo},
			})
			continue
		}
		if name, lit, ok := matchConstAssignment(trimmed); ok {
			src.consts = append(src.consts, pin.Pin{
				Kind: pin.KindConstant, Filename: filename, Namespace: currentNamespace(),
				Name: name, Visibility: pin.Public, ReturnType: literalType(lit),
				Node: lineNode{file: filename, line: lineNo},
			})
			continue
		}
		for _, sym := range extractSymbolLiterals(trimmed) {
			src.symbols = append(src.symbols, pin.Pin{
				Kind: pin.KindSymbol, Filename: filename, Namespace: currentNamespace(),
				Name: sym, Node: lineNode{file: filename, line: lineNo},
			})
		}
	}

	return src
}

func stripComment(line string) string {
	inStr := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inStr != 0 {
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inStr = c
		case '#':
			return line[:i]
		}
	}
	return line
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "::" + name
}

func parseClassHeader(rest string) (name, super string) {
	parts := strings.SplitN(rest, "<", 2)
	name = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		super = strings.TrimSpace(parts[1])
	}
	return
}

func parseDefHeader(rest string) (name string, scope pin.Scope, params []pin.Parameter, ret string) {
	scope = pin.ScopeInstance
	if strings.HasPrefix(rest, "self.") {
		scope = pin.ScopeClass
		rest = strings.TrimPrefix(rest, "self.")
	}

	// "def name(params): Type" is this subset's declared-return-type
	// annotation; only a colon trailing the closing paren counts.
	if close := strings.LastIndex(rest, ")"); close >= 0 {
		if idx := strings.Index(rest[close:], ":"); idx >= 0 {
			ret = strings.TrimSpace(rest[close+idx+1:])
			rest = rest[:close+idx]
		}
	}

	open := strings.Index(rest, "(")
	if open < 0 {
		name = strings.TrimSpace(rest)
		return
	}
	name = strings.TrimSpace(rest[:open])
	close := strings.LastIndex(rest, ")")
	if close < open {
		return
	}
	for _, p := range strings.Split(rest[open+1:close], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		param := pin.Parameter{Decl: p}
		switch {
		case strings.HasPrefix(p, "**"):
			param.IsSplat, param.IsKeyword = true, true
			param.Name = strings.TrimPrefix(p, "**")
		case strings.HasPrefix(p, "*"):
			param.IsSplat = true
			param.Name = strings.TrimPrefix(p, "*")
		case strings.HasPrefix(p, "&"):
			param.IsBlock = true
			param.Name = strings.TrimPrefix(p, "&")
		default:
			if idx := strings.Index(p, ":"); idx >= 0 {
				param.IsKeyword = true
				param.Name = strings.TrimSpace(p[:idx])
				if strings.TrimSpace(p[idx+1:]) != "" {
					param.HasDefault = true
				}
			} else if idx := strings.Index(p, "="); idx >= 0 {
				param.Name = strings.TrimSpace(p[:idx])
				param.HasDefault = true
			} else {
				param.Name = p
			}
		}
		params = append(params, param)
	}
	return
}

func matchAssignment(trimmed, sigil string) (name, literal string) {
	if !strings.HasPrefix(trimmed, sigil) {
		return "", ""
	}
	rest := trimmed[len(sigil):]
	idx := strings.Index(rest, "=")
	if idx < 0 {
		return "", ""
	}
	candidate := strings.TrimSpace(rest[:idx])
	if candidate == "" || strings.ContainsAny(candidate, " .([") {
		return "", ""
	}
	// avoid matching `==`
	if idx+1 < len(rest) && rest[idx+1] == '=' {
		return "", ""
	}
	return candidate, strings.TrimSpace(rest[idx+1:])
}

func matchConstAssignment(trimmed string) (name, literal string, ok bool) {
	idx := strings.Index(trimmed, "=")
	if idx < 0 || (idx+1 < len(trimmed) && trimmed[idx+1] == '=') {
		return "", "", false
	}
	candidate := strings.TrimSpace(trimmed[:idx])
	if candidate == "" || !isConstName(candidate) {
		return "", "", false
	}
	return candidate, strings.TrimSpace(trimmed[idx+1:]), true
}

func isConstName(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func parseSymbolList(rest string) []string {
	var out []string
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, ":")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func extractSymbolLiterals(line string) []string {
	var out []string
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 < len(line) && line[i+1] == ':' {
			i++
			continue
		}
		j := i + 1
		for j < len(line) && (line[j] == '_' || (line[j] >= 'a' && line[j] <= 'z') || (line[j] >= 'A' && line[j] <= 'Z') || (line[j] >= '0' && line[j] <= '9')) {
			j++
		}
		if j > i+1 {
			out = append(out, line[i+1:j])
		}
		i = j - 1
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// literalType implements spec.md §4.4's "literal shortcut": pure literal
// right-hand sides map directly to their class name without the chain
// walker.
func literalType(lit string) string {
	lit = strings.TrimSpace(lit)
	switch {
	case lit == "":
		return ""
	case lit == "true" || lit == "false":
		return "Boolean"
	case lit == "nil":
		return "NilClass"
	case strings.HasPrefix(lit, "\"") || strings.HasPrefix(lit, "'"):
		return "String"
	case strings.HasPrefix(lit, ":"):
		return "Symbol"
	case strings.HasPrefix(lit, "["):
		return "Array"
	case strings.HasPrefix(lit, "{"):
		return "Hash"
	default:
		if _, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return "Integer"
		}
		if _, err := strconv.ParseFloat(lit, 64); err == nil {
			return "Float"
		}
		return ""
	}
}

func docSummary(d *Docstring) string {
	if d == nil {
		return ""
	}
	return d.Summary
}
