// Package manifest handles the per-repository project manifest.
//
// Every repository carries two equivalent manifests at its root:
// hackerrank.yml (authored, shipped inside the source archive) and
// hackerrank.json (translated at provisioning time, read by the
// push-admission hook). The only field this service consumes is
// configuration.readonly_paths; everything else is preserved untouched
// through the YAML to JSON translation.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	// YAMLName is the authored manifest filename.
	YAMLName = "hackerrank.yml"

	// JSONName is the translated manifest filename.
	JSONName = "hackerrank.json"
)

// Policy is the subset of the manifest the push-admission hook consumes.
type Policy struct {
	// ReadOnlyPaths holds regular-expression pattern strings. A missing or
	// malformed readonly_paths field normalizes to an empty list rather
	// than an error.
	ReadOnlyPaths []string
}

// TranslateYAMLToJSON converts a YAML manifest into its JSON equivalent,
// preserving all fields. Returns an error for YAML that does not parse.
func TranslateYAMLToJSON(src []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest JSON: %w", err)
	}
	return out, nil
}

// TranslateFile reads a YAML manifest file and writes the JSON equivalent
// next to it at dstPath.
func TranslateFile(srcPath, dstPath string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest %q: %w", srcPath, err)
	}
	out, err := TranslateYAMLToJSON(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %q: %w", dstPath, err)
	}
	return nil
}

// ReadPolicy loads the JSON manifest at path and extracts the policy
// fields. A missing or type-mismatched readonly_paths field yields an empty
// policy; a file that does not parse at all is an error, which the hook
// treats as fail-closed.
func ReadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Policy{}, nil
		}
		return Policy{}, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Policy{}, fmt.Errorf("failed to parse manifest %q: %w", path, err)
	}
	return policyFrom(doc), nil
}

// policyFrom walks the loosely-typed manifest document. Any shape other
// than configuration.readonly_paths being a list of strings normalizes to
// no patterns.
func policyFrom(doc map[string]any) Policy {
	conf, ok := doc["configuration"].(map[string]any)
	if !ok {
		return Policy{}
	}
	raw, ok := conf["readonly_paths"].([]any)
	if !ok {
		return Policy{}
	}
	var paths []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			paths = append(paths, s)
		}
	}
	return Policy{ReadOnlyPaths: paths}
}

// CompilePatterns compiles the read-only path patterns, silently dropping
// any that are not valid regular expressions.
func (p Policy) CompilePatterns() []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, s := range p.ReadOnlyPaths {
		re, err := regexp.Compile(s)
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}
