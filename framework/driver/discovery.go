package driver

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// ResolveEngines turns each spec into an EngineConfig whose DriverPath is the first executable
// found in dir/<spec.Subdir>, in name order. Hidden files and subdirectories are ignored. If the
// subdirectory is missing or empty, DriverPath is left empty and the Factory will skip the engine.
func ResolveEngines(dir string, specs []EngineSpec) []EngineConfig {
	ret := make([]EngineConfig, 0, len(specs))
	for _, spec := range specs {
		ret = append(ret, EngineConfig{
			Name:       spec.Name,
			Kind:       spec.Kind,
			DriverPath: findExecutable(filepath.Join(dir, spec.Subdir)),
			Options:    spec.Options,
		})
	}
	return ret
}

func findExecutable(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return ""
	}
	slices.Sort(names)
	return filepath.Join(dir, names[0])
}
