package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/apimap/internal/pin"
)

func TestVirtualParsesClassAndMethod(t *testing.T) {
	src := Virtual(`class Foo
  def bar
  end
end
`, "a.rb")

	names := map[string]bool{}
	for _, p := range src.MethodPins() {
		names[p.Namespace+"#"+p.Name] = true
	}
	assert.True(t, names["Foo#bar"])

	_, ok := src.NamespaceNodes()["Foo"]
	assert.True(t, ok)
}

func TestVirtualParsesIncludeAndExtend(t *testing.T) {
	src := Virtual(`module M
end
class C
  include M
  extend M
end
`, "a.rb")

	assert.ElementsMatch(t, []string{"M"}, src.NamespaceIncludes()["C"])
	assert.ElementsMatch(t, []string{"M"}, src.NamespaceExtends()["C"])
}

func TestVirtualParsesSuperclass(t *testing.T) {
	src := Virtual(`class D < C
end
`, "a.rb")
	assert.Equal(t, "C", src.Superclasses()["D"])
}

func TestVirtualParsesLiteralAssignments(t *testing.T) {
	src := Virtual(`class Foo
  @x = 5
  @@y = "s"
  CONST = true
end
`, "a.rb")

	var ivarType, cvarType, constType string
	for _, p := range src.InstanceVariablePins() {
		if p.Name == "x" {
			ivarType = p.ReturnType
		}
	}
	for _, p := range src.ClassVariablePins() {
		if p.Name == "y" {
			cvarType = p.ReturnType
		}
	}
	for _, p := range src.ConstantPins() {
		if p.Name == "CONST" {
			constType = p.ReturnType
		}
	}
	assert.Equal(t, "Integer", ivarType)
	assert.Equal(t, "String", cvarType)
	assert.Equal(t, "Boolean", constType)
}

func TestVirtualParsesAttrAccessor(t *testing.T) {
	src := Virtual(`class Foo
  attr_accessor :name, :age
  attr_reader :ro
end
`, "a.rb")

	var names []string
	var roParams []pin.Parameter
	for _, p := range src.AttributePins() {
		names = append(names, p.Name)
		if p.Name == "ro" {
			roParams = p.Parameters
		}
	}
	assert.ElementsMatch(t, []string{"name", "age", "ro"}, names)
	assert.Nil(t, roParams)
}

func TestLoadMissingFileReturnsEmptySource(t *testing.T) {
	src, err := Load("/nonexistent/path/does-not-exist.rb")
	assert.Error(t, err)
	assert.Equal(t, "/nonexistent/path/does-not-exist.rb", src.Filename())
	assert.Empty(t, src.MethodPins())
}

func TestFixSubstitutesAtCursor(t *testing.T) {
	code := "class Foo\n  def \nend\n"
	cursor := len("class Foo\n  def ")
	src := Fix(code, "a.rb", &cursor)
	assert.NotNil(t, src)

	var names []string
	for _, p := range src.MethodPins() {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "_fix_")
}

func TestCodeForReturnsLine(t *testing.T) {
	src := Virtual("class Foo\n  def bar\n  end\nend\n", "a.rb")
	for _, p := range src.MethodPins() {
		if p.Name == "bar" {
			assert.Contains(t, src.CodeFor(p.Node), "def bar")
		}
	}
}
