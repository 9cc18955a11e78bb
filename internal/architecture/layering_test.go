package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePrefix = "engagectl/internal/modules/"

// sourceImports maps every non-test .go file under root to its import paths.
func sourceImports(t *testing.T, root string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()
	out := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if parseErr != nil {
			return parseErr
		}
		imports := make([]string, 0, len(node.Imports))
		for _, imp := range node.Imports {
			imports = append(imports, strings.Trim(imp.Path.Value, `"`))
		}
		out[filepath.ToSlash(path)] = imports
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	if len(out) == 0 {
		t.Fatalf("no sources under %s", root)
	}
	return out
}

func TestHexagonalLayerImports(t *testing.T) {
	t.Parallel()
	for path, imports := range sourceImports(t, filepath.Join("..", "modules")) {
		module := moduleName(path)
		layer := detectLayer(path)
		if module == "" || layer == "" {
			continue
		}
		for _, importPath := range imports {
			if !strings.HasPrefix(importPath, modulePrefix) {
				continue
			}
			if violatesLayerRule(module, layer, importPath) {
				t.Errorf("forbidden import in %s (%s): %s", path, layer, importPath)
			}
		}
	}
}

func TestCoreLayersStayOffStorageDrivers(t *testing.T) {
	t.Parallel()
	storage := []string{"database/sql", "engagectl/internal/platform/sqlitedb", "engagectl/internal/platform/tx", "modernc.org/sqlite"}
	for path, imports := range sourceImports(t, filepath.Join("..", "modules")) {
		switch detectLayer(path) {
		case "domain", "service", "usecase", "port/in", "port/out", "dto":
		default:
			continue
		}
		for _, importPath := range imports {
			for _, forbidden := range storage {
				if importPath == forbidden {
					t.Errorf("%s reaches storage directly via %s; go through a port", path, importPath)
				}
			}
		}
	}
}

func TestPlatformStaysBelowModulesAndUI(t *testing.T) {
	t.Parallel()
	for path, imports := range sourceImports(t, filepath.Join("..", "platform")) {
		for _, importPath := range imports {
			if strings.HasPrefix(importPath, modulePrefix) || strings.HasPrefix(importPath, "engagectl/internal/ui") || strings.HasPrefix(importPath, "engagectl/internal/bootstrap") {
				t.Errorf("platform file %s imports %s", path, importPath)
			}
		}
	}
}

func TestUIUsesOnlyModuleContracts(t *testing.T) {
	t.Parallel()
	for path, imports := range sourceImports(t, filepath.Join("..", "ui")) {
		for _, importPath := range imports {
			if !strings.HasPrefix(importPath, modulePrefix) {
				continue
			}
			if !isPortIn(importPath) && !isDTO(importPath) {
				t.Errorf("ui file %s imports %s; depend on dto or port/in", path, importPath)
			}
		}
	}
}

func moduleName(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "modules" {
			return parts[i+1]
		}
	}
	return ""
}

func detectLayer(path string) string {
	for _, layer := range []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"} {
		if strings.Contains(path, "/"+layer+"/") {
			return layer
		}
	}
	return ""
}

func isPortIn(path string) bool {
	return strings.Contains(path, "/port/in/") || strings.HasSuffix(path, "/port/in")
}

func isDTO(path string) bool {
	return strings.Contains(path, "/dto/") || strings.HasSuffix(path, "/dto")
}

func violatesLayerRule(module, layer, importPath string) bool {
	if !strings.HasPrefix(importPath, modulePrefix+module+"/") {
		// Other modules are reachable only through their contracts.
		return !isPortIn(importPath) && !isDTO(importPath)
	}

	switch layer {
	case "adapter/in":
		return !isPortIn(importPath) && !isDTO(importPath)
	case "usecase":
		return strings.Contains(importPath, "/adapter/")
	case "service":
		return strings.Contains(importPath, "/adapter/") || strings.Contains(importPath, "/usecase/")
	case "domain", "dto", "port/in":
		return strings.Contains(importPath, "/adapter/") || strings.Contains(importPath, "/usecase/") || strings.Contains(importPath, "/service/")
	default:
		return false
	}
}
