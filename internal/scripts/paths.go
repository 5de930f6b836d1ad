package scripts

import (
	"os"
	"path/filepath"
)

// SearchPaths returns script directories in precedence order.
func SearchPaths(projectDir string) []string {
	paths := make([]string, 0, 3)
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".vibealong", "scripts"))
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "vibealong", "scripts"))
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "vibealong", "scripts"))
	return paths
}

// LoadFromSearchPaths loads scripts from the extra directory, the search paths
// and the builtins, in that order. The first script with a given name wins.
func LoadFromSearchPaths(projectDir, extraDir string) ([]*Script, error) {
	paths := SearchPaths(projectDir)
	if extraDir != "" {
		paths = append([]string{extraDir}, paths...)
	}

	seen := make(map[string]*Script)
	order := make([]string, 0)

	add := func(items []*Script) {
		for _, s := range items {
			if _, exists := seen[s.Name]; exists {
				continue
			}
			seen[s.Name] = s
			order = append(order, s.Name)
		}
	}

	for _, path := range paths {
		items, err := LoadScriptsFromDir(path)
		if err != nil {
			return nil, err
		}
		add(items)
	}

	builtins, err := LoadBuiltinScripts()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Script, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}
	return resolved, nil
}
