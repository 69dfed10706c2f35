package toolrunner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/util"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return data, nil
}

// NormalizeVitestOutput rewrites testResults[].name in the vitest JSON
// report at path so it is workspace-root-relative, writing atomically.
// Paths that don't start with root are left unchanged.
func NormalizeVitestOutput(path, root string) error {
	return normalizeJSONPaths(path, func(raw map[string]any) error {
		results, ok := raw["testResults"].([]any)
		if !ok {
			return nil
		}
		for _, r := range results {
			entry, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := entry["name"].(string); ok {
				entry["name"] = stripRoot(name, root)
			}
		}
		return nil
	})
}

// NormalizeESLintOutput rewrites each element's filePath in the eslint JSON
// report at path so it is workspace-root-relative, writing atomically.
func NormalizeESLintOutput(path, root string) error {
	data, err := readJSONArray(path)
	if err != nil {
		return err
	}
	for _, el := range data {
		entry, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if fp, ok := entry["filePath"].(string); ok {
			entry["filePath"] = stripRoot(fp, root)
		}
	}
	return util.AtomicWriteJSON(path, data, 0o600)
}

func stripRoot(p, root string) string {
	root = strings.TrimSuffix(root, "/")
	if strings.HasPrefix(p, root+"/") {
		return strings.TrimPrefix(p, root+"/")
	}
	return p
}

func normalizeJSONPaths(path string, mutate func(map[string]any) error) error {
	raw, err := readJSONObject(path)
	if err != nil {
		return err
	}
	if err := mutate(raw); err != nil {
		return err
	}
	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling normalized output %q: %w", path, err)
	}
	return util.AtomicWriteFile(path, out, 0o600)
}

func readJSONObject(path string) (map[string]any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "parsing %q: %v", path, err)
	}
	return v, nil
}

func readJSONArray(path string) ([]any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var v []any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errkind.Wrap(errkind.ParseError, "parsing %q: %v", path, err)
	}
	return v, nil
}
