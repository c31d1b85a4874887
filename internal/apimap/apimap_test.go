package apimap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/apimap/internal/config"
	"github.com/standardbeagle/apimap/internal/pin"
)

func labels(pins []pin.Pin) []string {
	out := make([]string, 0, len(pins))
	for _, p := range pins {
		out = append(out, p.Name)
	}
	return out
}

func newWorkspace(t *testing.T, files map[string]string) (*ApiMap, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	cfg := config.Default(dir)
	a := New(cfg, nil, nil)
	require.NoError(t, a.Initialize())
	return a, dir
}

// S1: a bare class with one method; class-side `new.bar` infers the same
// return type as the bar method's declared return type (empty here).
func TestScenarioS1ClassAndMethod(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def bar\n  end\nend\n",
	})

	got := a.InferSignatureType("Foo.new.bar", "", pin.ScopeClass)
	assert.Equal(t, "", got)

	methods := labels(a.GetInstanceMethods("Foo", "", pin.Public))
	assert.Contains(t, methods, "bar")
}

// S2: a module mixed into a class contributes its instance methods.
func TestScenarioS2Mixin(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "module M\n  def hi\n  end\nend\nclass C\n  include M\nend\n",
	})

	assert.Contains(t, labels(a.GetInstanceMethods("C", "", pin.Public)), "hi")
	assert.True(t, a.NamespaceExists("M", ""))
}

// S3: a mutual-include cycle terminates and merges methods from both sides
// without duplication.
func TestScenarioS3MixinCycleTerminates(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "module A\n  include B\n  def from_a\n  end\nend\n",
		"b.rb": "module B\n  include A\n  def from_b\n  end\nend\n",
	})

	got := labels(a.GetInstanceMethods("A", "", pin.Public))
	assert.Contains(t, got, "from_a")
	assert.Contains(t, got, "from_b")

	seen := map[string]int{}
	for _, l := range got {
		seen[l]++
	}
	for name, count := range seen {
		assert.Equalf(t, 1, count, "method %q should appear once", name)
	}
}

// S4: a subclass's path suggestions are non-empty and inferring through the
// subclass yields the same type as through the superclass directly.
func TestScenarioS4Superclass(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class C\n  def foo\n  end\nend\nclass D < C\nend\n",
	})

	assert.NotEmpty(t, a.GetPathSuggestions("D#foo"))

	dType := a.InferSignatureType("D.new.foo", "", pin.ScopeClass)
	cType := a.InferSignatureType("C.new.foo", "", pin.ScopeClass)
	assert.Equal(t, cType, dType)
}

// S5: an instance-variable assignment's literal type is inferred without
// walking the call chain.
func TestScenarioS5InstanceVariableLiteral(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def initialize\n    @x = 5\n  end\nend\n",
	})

	assert.Equal(t, "Integer", a.InferInstanceVariable("@x", "Foo", pin.ScopeInstance))
}

// S6: an editor overlay adds a method, then removing it in a later overlay
// drops it again.
func TestScenarioS6VirtualizeOverlay(t *testing.T) {
	a, dir := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\nend\n",
	})

	require.NoError(t, a.Virtualize("class Foo\n  def new_thing\n  end\nend\n", filepath.Join(dir, "a.rb"), nil))
	assert.Contains(t, labels(a.GetInstanceMethods("Foo", "", pin.Public)), "new_thing")

	require.NoError(t, a.Virtualize("class Foo\nend\n", filepath.Join(dir, "a.rb"), nil))
	assert.NotContains(t, labels(a.GetInstanceMethods("Foo", "", pin.Public)), "new_thing")
}

// Universal property 1: every namespace Namespaces() returns resolves via
// NamespaceExists.
func TestUniversalNamespacesResolve(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "module A\n  class B\n  end\nend\nclass C\nend\n",
	})
	for _, fqn := range a.Namespaces() {
		assert.Truef(t, a.NamespaceExists(fqn, ""), "namespace %q should resolve", fqn)
	}
}

// The overlay replaces the on-disk Source for the same filename rather
// than merging alongside it (spec.md §5 "Overlay buffer").
func TestVirtualizeReplacesNotMerges(t *testing.T) {
	a, dir := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def old_method\n  end\nend\n",
	})
	require.Contains(t, labels(a.GetInstanceMethods("Foo", "", pin.Public)), "old_method")

	require.NoError(t, a.Virtualize("class Foo\n  def new_method\n  end\nend\n", filepath.Join(dir, "a.rb"), nil))

	got := labels(a.GetInstanceMethods("Foo", "", pin.Public))
	assert.Contains(t, got, "new_method")
	assert.NotContains(t, got, "old_method")
}

// Universal property 3: eliminate (driven here by a deleted-on-disk file
// going through Update) drops every pin for the evicted file.
func TestEliminateDropsFilePins(t *testing.T) {
	a, dir := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def bar\n  end\nend\n",
		"b.rb": "class Baz\n  def qux\n  end\nend\n",
	})

	aPath := filepath.Join(dir, "a.rb")
	require.NoError(t, os.Remove(aPath))
	require.NoError(t, a.Update(aPath))

	assert.NotContains(t, labels(a.GetInstanceMethods("Foo", "", pin.Public)), "bar")
	for _, pins := range a.methodPins {
		for _, p := range pins {
			assert.NotEqual(t, aPath, p.Filename)
		}
	}
	assert.Contains(t, labels(a.GetInstanceMethods("Baz", "", pin.Public)), "qux")
}

// Universal property 4: find_fully_qualified_namespace is idempotent on an
// already-fully-qualified name.
func TestFindFQNIdempotent(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "module A\n  class B\n  end\nend\n",
	})
	assert.Equal(t, "A::B", a.FindFullyQualifiedNamespace("A::B", ""))
}

// Universal property 5: InferSignatureType is cache-consistent across
// repeated calls with identical arguments.
func TestInferSignatureTypeCached(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def bar\n  end\nend\n",
	})
	first := a.InferSignatureType("Foo.new.bar", "", pin.ScopeClass)
	second := a.InferSignatureType("Foo.new.bar", "", pin.ScopeClass)
	assert.Equal(t, first, second)

	key := signatureKey{signature: "Foo.new.bar", namespace: "", scope: pin.ScopeClass}
	cached, ok := a.cache.getSignature(key)
	require.True(t, ok)
	assert.Equal(t, first, cached)
}

// Universal property 7: update() followed by Changed() returns false when
// nothing else changed.
func TestUpdateThenUnchanged(t *testing.T) {
	a, dir := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\nend\n",
	})
	require.NoError(t, a.Update(filepath.Join(dir, "a.rb")))
	assert.False(t, a.Changed())
}

// get_constants on a namespace lists its own declared constant and the
// namespaces nested in it (round-trip property 9: a namespace pin's FQN
// parent enumerates its last segment).
func TestGetConstantsNestedNamespace(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "module A\n  VERSION = \"1.0\"\n  class B\n  end\nend\n",
	})
	consts := a.GetConstants("A", "")
	assert.Contains(t, labels(consts), "VERSION")
	assert.Contains(t, labels(consts), "B")
}

// Synthesized `new`: a class defining `initialize` gets a class-method
// `new` pin whose parameters mirror initialize's.
func TestSynthesizedNewMirrorsInitialize(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def initialize(x)\n  end\nend\n",
	})
	classMethods := a.GetMethods("Foo", "", pin.Public)
	var found *pin.Pin
	for i := range classMethods {
		if classMethods[i].Name == "new" {
			found = &classMethods[i]
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Parameters, 1)
	assert.Equal(t, "x", found.Parameters[0].Name)
}

// Self-reference guard: `x = x.foo` must not recurse infinitely and
// returns an empty type.
func TestInferAssignmentSelfReferenceGuard(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\nend\n",
	})
	got := a.InferAssignmentNodeType(nil, "Foo", "x", "x.foo", pin.ScopeInstance)
	assert.Equal(t, "", got)
}

// GetPathSuggestions round-trip (property 8): every method pin's path
// yields a suggestion with a matching label.
func TestGetPathSuggestionsRoundTrip(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\n  def bar\n  end\nend\n",
	})
	got := a.GetPathSuggestions("Foo#bar")
	require.NotEmpty(t, got)
	assert.Equal(t, "bar", got[0].Name)
}

func TestVirtualizeUnnamedOverlayAddsNamespace(t *testing.T) {
	a, _ := newWorkspace(t, map[string]string{
		"a.rb": "class Foo\nend\n",
	})
	require.NoError(t, a.Virtualize("class Bar\nend\n", "", nil))
	assert.True(t, a.NamespaceExists("Bar", ""))
	assert.True(t, a.NamespaceExists("Foo", ""))
}
