package rewrite

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The package identifier substring renamed during conversion.
const (
	OldPackageSlug = "react-starter-kit"
	NewPackageSlug = "react-jsx-starter-kit"
)

// ConvertedDescription replaces the package description field.
const ConvertedDescription = "React starter kit using plain JavaScript and JSX, generated from the TypeScript template."

// typeDevDependencies are deleted from devDependencies when present.
var typeDevDependencies = []string{
	"typescript",
	"@types/react",
	"@types/react-dom",
	"@types/node",
}

// RewritePackageJSON renames the package identifier, rewrites the
// description, and drops the type-related dev dependencies. The output is
// deterministic (sorted keys, two-space indent), so a second pass over
// already-converted content is byte-stable.
func RewritePackageJSON(data []byte) ([]byte, error) {
	var pkg map[string]any
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse package metadata: %w", err)
	}

	if name, ok := pkg["name"].(string); ok {
		pkg["name"] = strings.Replace(name, OldPackageSlug, NewPackageSlug, 1)
	}
	pkg["description"] = ConvertedDescription

	if devDeps, ok := pkg["devDependencies"].(map[string]any); ok {
		for _, dep := range typeDevDependencies {
			delete(devDeps, dep)
		}
	}

	out, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize package metadata: %w", err)
	}
	return append(out, '\n'), nil
}

// RewriteLockfileName replaces the package name field of the secondary
// manifest (lockfile) outright, including the nested root-package entry.
func RewriteLockfileName(data []byte) ([]byte, error) {
	var lock map[string]any
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse lockfile: %w", err)
	}

	rename := func(m map[string]any) {
		if name, ok := m["name"].(string); ok {
			m["name"] = strings.Replace(name, OldPackageSlug, NewPackageSlug, 1)
		}
	}
	rename(lock)
	if packages, ok := lock["packages"].(map[string]any); ok {
		if root, ok := packages[""].(map[string]any); ok {
			rename(root)
		}
	}

	out, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize lockfile: %w", err)
	}
	return append(out, '\n'), nil
}

// RewriteComponentsJSON forces the source-language flag to false in the
// component registry metadata.
func RewriteComponentsJSON(data []byte) ([]byte, error) {
	var reg map[string]any
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse component registry: %w", err)
	}

	reg["tsx"] = false

	out, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize component registry: %w", err)
	}
	return append(out, '\n'), nil
}
