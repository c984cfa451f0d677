package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mathTest = `package math

import "testing"

// TestAdd checks addition
func TestAdd(t *testing.T) {
	if 1+1 != 2 {
		t.Fatal("math is broken")
	}
}

type helper struct{}

func (helper) TestMethod(t *testing.T) {}

func TestMain(m *testing.M) {
	m.Run()
}
`

func setupModule(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/demo\n\ngo 1.22\n"), 0644))
	pkg := filepath.Join(dir, "pkg", "math")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "math_test.go"), []byte(mathTest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "math.go"), []byte("package math\n\nfunc TestNotATest() {}\n"), 0644))
	return dir
}

func TestPackageDir(t *testing.T) {
	dir := setupModule(t)
	l, err := NewLocator(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/demo", l.ModulePath())

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "module root", in: "example.com/demo", want: dir},
		{name: "nested", in: "example.com/demo/pkg/math", want: filepath.Join(dir, "pkg", "math")},
		{name: "relative", in: "./pkg/math", want: filepath.Join(dir, "pkg", "math")},
		{name: "other module", in: "example.com/other", wantErr: true},
		{name: "prefix only", in: "example.com/demolition", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.PackageDir(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotInModule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	dir := setupModule(t)
	l, err := NewLocator(dir)
	require.NoError(t, err)

	fn, ok, err := l.Lookup("example.com/demo/pkg/math", "TestAdd")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "pkg", "math", "math_test.go"), fn.File)
	assert.Equal(t, "func TestAdd(t *testing.T) {\n\tif 1+1 != 2 {\n\t\tt.Fatal(\"math is broken\")\n\t}\n}", fn.Source)

	_, ok, err = l.Lookup("example.com/demo/pkg/math", "TestMethod")
	require.NoError(t, err)
	assert.False(t, ok, "methods are not test functions")

	_, ok, err = l.Lookup("example.com/demo/pkg/math", "TestNotATest")
	require.NoError(t, err)
	assert.False(t, ok, "only _test.go files are searched")

	_, _, err = l.Lookup("example.com/demo/missing", "TestAdd")
	assert.Error(t, err)
}

func TestNewLocatorErrors(t *testing.T) {
	_, err := NewLocator(t.TempDir())
	assert.ErrorContains(t, err, "go.mod")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("go 1.22\n"), 0644))
	_, err = NewLocator(dir)
	assert.ErrorContains(t, err, "module name")
}
