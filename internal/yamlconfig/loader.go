// Package yamlconfig provides the YAML implementation of config.Loader.
// Every top-level key of a document is a configuration section; settings
// structs use yaml struct tags.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader reads YAML configuration files.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses each file. Files must hold a single document whose root is a
// mapping; an empty file contributes no sections.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Root, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	root := config.NewRoot()
	for _, file := range paths {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML file %s: %w", file, err)
		}
		if doc.Kind == 0 {
			continue
		}

		mapping := doc.Content[0]
		if mapping.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s:%d: top level must be a mapping of sections", file, mapping.Line)
		}

		seen := make(map[string]bool)
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			key, value := mapping.Content[i], mapping.Content[i+1]
			if seen[key.Value] {
				return nil, fmt.Errorf("%s:%d: duplicate section '%s'", file, key.Line, key.Value)
			}
			seen[key.Value] = true
			root.Add(key.Value, &Section{node: value, source: file})
		}
		logger.Debug("Parsed YAML file.", "file", file, "sections", len(seen))
	}
	return root, nil
}

// Section is the value under one top-level key.
type Section struct {
	node   *yaml.Node
	source string
}

// Decode decodes the section into target. Keys unknown to target are
// rejected; fields without a key keep their current value.
func (s *Section) Decode(ctx context.Context, target any) error {
	ctxlog.FromContext(ctx).Debug("Decoding YAML section.", "source", s.source, "target", fmt.Sprintf("%T", target))

	// A null section (a key with no value) decodes to nothing.
	if s.node.Kind == yaml.ScalarNode && s.node.Tag == "!!null" {
		return nil
	}

	var buf bytes.Buffer
	if err := yaml.NewEncoder(&buf).Encode(s.node); err != nil {
		return err
	}
	dec := yaml.NewDecoder(&buf)
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Source returns the file the section was read from.
func (s *Section) Source() string { return s.source }
