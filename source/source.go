// Package source locates the source text of Go test functions
package source

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ErrNotInModule is returned for import paths outside the working module
var ErrNotInModule = errors.New("package is not in module")

// Func is one top-level function declared in a _test.go file
type Func struct {
	File   string // absolute path
	Source string // from the func keyword to the closing brace
}

// Locator resolves import paths of the module rooted at a working directory
// and caches the parsed test files of each package directory
type Locator struct {
	workingDir string
	modulePath string
	funcs      map[string]map[string]Func
}

// NewLocator reads the go.mod of workingDir
func NewLocator(workingDir string) (*Locator, error) {
	absDir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory '%s': %w", workingDir, err)
	}

	goModPath := filepath.Join(absDir, "go.mod")
	goModContent, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}
	modFile, err := modfile.Parse(goModPath, goModContent, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod: %w", err)
	}
	if modFile.Module == nil || modFile.Module.Mod.Path == "" {
		return nil, errors.New("could not find module name in go.mod")
	}

	return &Locator{
		workingDir: absDir,
		modulePath: modFile.Module.Mod.Path,
		funcs:      make(map[string]map[string]Func),
	}, nil
}

// ModulePath returns the path declared by go.mod
func (l *Locator) ModulePath() string {
	return l.modulePath
}

// PackageDir returns the directory of a package of the module
func (l *Locator) PackageDir(importPath string) (string, error) {
	if strings.HasPrefix(importPath, "./") {
		return filepath.Join(l.workingDir, strings.TrimPrefix(importPath, "./")), nil
	}
	if importPath != l.modulePath && !strings.HasPrefix(importPath, l.modulePath+"/") {
		return "", fmt.Errorf("%w: %s is not in %s", ErrNotInModule, importPath, l.modulePath)
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(importPath, l.modulePath), "/")
	return filepath.Join(l.workingDir, filepath.FromSlash(rel)), nil
}

// Lookup finds the test function name of the package importPath
func (l *Locator) Lookup(importPath, name string) (Func, bool, error) {
	dir, err := l.PackageDir(importPath)
	if err != nil {
		return Func{}, false, err
	}
	return l.FindFunc(dir, name)
}

// FindFunc finds a top-level function (not a method) declared in one of
// the _test.go files of dir
func (l *Locator) FindFunc(dir, name string) (Func, bool, error) {
	funcs, ok := l.funcs[dir]
	if !ok {
		var err error
		if funcs, err = parseTestFuncs(dir); err != nil {
			return Func{}, false, err
		}
		l.funcs[dir] = funcs
	}
	fn, ok := funcs[name]
	return fn, ok, nil
}

func parseTestFuncs(dir string) (map[string]Func, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	funcs := make(map[string]Func)
	fset := token.NewFileSet()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		filePath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		f, err := parser.ParseFile(fset, filePath, content, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		for _, decl := range f.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Recv != nil || funcDecl.Body == nil {
				continue
			}
			start := fset.Position(funcDecl.Pos()).Offset
			end := fset.Position(funcDecl.End()).Offset
			funcs[funcDecl.Name.Name] = Func{
				File:   filePath,
				Source: string(content[start:end]),
			}
		}
	}
	return funcs, nil
}
