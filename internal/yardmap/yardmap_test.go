package yardmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/apimap/internal/pin"
)

const archiveYAML = `
library: stdlib
entries:
  - path: "Array"
    kind: namespace
    namespace_type: class
  - path: "Array#first"
    kind: method
    namespace: "Array"
    name: first
    scope: instance
    visibility: public
    return_type: "Object"
  - path: "Array::SEPARATOR"
    kind: constant
    namespace: "Array"
    name: SEPARATOR
    return_type: "String"
`

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stdlib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndGetMethods(t *testing.T) {
	path := writeArchive(t, archiveYAML)
	m, errs := Load([]string{path})
	assert.Empty(t, errs)

	methods := m.GetInstanceMethods("Array", "", pin.Public)
	require.Len(t, methods, 1)
	assert.Equal(t, "first", methods[0].Name)
	assert.Equal(t, "Object", methods[0].ReturnType)
}

func TestGetConstants(t *testing.T) {
	path := writeArchive(t, archiveYAML)
	m, _ := Load([]string{path})
	consts := m.GetConstants("Array")
	require.Len(t, consts, 1)
	assert.Equal(t, "SEPARATOR", consts[0].Name)
}

func TestGetNamespaceType(t *testing.T) {
	path := writeArchive(t, archiveYAML)
	m, _ := Load([]string{path})
	assert.Equal(t, "class", m.GetNamespaceType("Array"))
	assert.Equal(t, "", m.GetNamespaceType("Nope"))
}

func TestLoadUnreadableArchiveReturnsError(t *testing.T) {
	m, errs := Load([]string{"/nonexistent/archive.yaml"})
	assert.NotEmpty(t, errs)
	assert.Empty(t, m.GetConstants("Array"))
}

func TestSearch(t *testing.T) {
	path := writeArchive(t, archiveYAML)
	m, _ := Load([]string{path})
	results := m.Search("first")
	require.NotEmpty(t, results)
}

func TestEmpty(t *testing.T) {
	m := Empty()
	assert.Empty(t, m.GetConstants("Array"))
	assert.Empty(t, m.GetMethods("Array", "", pin.Public))
	assert.Equal(t, "", m.GetNamespaceType("Array"))
}
