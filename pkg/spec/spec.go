// Package spec reads and writes database specifications in YAML form.
package spec

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stewarddb/steward/pkg/consts"
)

// Load parses a specification document.
func Load(r io.Reader) (map[string]any, error) {
	var out map[string]any
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, errors.Wrap(err, "parsing specification")
	}
	return out, nil
}

// LoadFile parses a specification file.
func LoadFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening specification")
	}
	defer f.Close()

	out, err := Load(f)
	return out, errors.Wrapf(err, "file %s", path)
}

// LoadDir parses every .yaml file under a directory and merges the
// documents into one specification. Files are read in lexical order; a
// top-level key appearing twice is an error. A subdirectory named after an
// object with dots for spaces ("schema.s1") holds member documents merged
// into that object's body.
func LoadDir(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading specification directory")
	}

	var names, subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	sort.Strings(subdirs)

	merged := map[string]any{}
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for key, v := range doc {
			if _, ok := merged[key]; ok {
				return nil, errors.Errorf("%s: duplicate top-level key %q", name, key)
			}
			merged[key] = v
		}
	}

	for _, name := range subdirs {
		members, err := LoadDir(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		key := strings.ReplaceAll(name, ".", " ")
		body, ok := merged[key].(map[string]any)
		if !ok {
			if _, exists := merged[key]; exists {
				return nil, errors.Errorf("%s: directory shadows a non-mapping key %q", name, key)
			}
			body = map[string]any{}
			merged[key] = body
		}
		for mk, mv := range members {
			if _, ok := body[mk]; ok {
				return nil, errors.Errorf("%s: duplicate member key %q", name, mk)
			}
			body[mk] = mv
		}
	}
	return merged, nil
}

// LoadPath loads a specification from a file or, when path is a
// directory, from every YAML file under it.
func LoadPath(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading specification")
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// Write renders a specification document. Keys are emitted in sorted
// order so output is stable across runs.
func Write(w io.Writer, doc map[string]any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sortKeys(doc)); err != nil {
		return errors.Wrap(err, "writing specification")
	}
	return errors.Wrap(enc.Close(), "writing specification")
}

// WriteDir renders a specification as one file per top-level object, named
// after the object with dots for spaces. The result loads back through
// LoadDir.
func WriteDir(dir string, doc map[string]any) error {
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return errors.Wrap(err, "creating specification directory")
	}
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := strings.ReplaceAll(key, " ", ".") + ".yaml"
		if err := WriteFile(filepath.Join(dir, name), map[string]any{key: doc[key]}); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile renders a specification to a file.
func WriteFile(path string, doc map[string]any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, consts.ModeFile)
	if err != nil {
		return errors.Wrap(err, "creating specification file")
	}
	defer f.Close()
	return Write(f, doc)
}

// sortKeys rebuilds nested maps as explicit yaml nodes with sorted keys.
// yaml.v3 serializes Go maps in random order otherwise. Lists are walked
// too: column lists carry maps inside them.
func sortKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, key := range keys {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
			valNode := &yaml.Node{}
			if err := valNode.Encode(sortKeys(v[key])); err != nil {
				continue
			}
			node.Content = append(node.Content, keyNode, valNode)
		}
		return node

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sortKeys(item)
		}
		return out

	default:
		return v
	}
}
