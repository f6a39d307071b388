package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/gridkit/internal/config"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates an HCL loader that evaluates expressions against the
// current process environment. The environment is captured when Load runs.
func NewLoader() *Loader {
	return &Loader{}
}

// NewLoaderWithContext creates an HCL loader with a fixed evaluation context.
func NewLoaderWithContext(evalCtx *hcl.EvalContext) *Loader {
	return &Loader{evalCtx: evalCtx}
}

// Load parses each file and returns its top-level blocks as sections. A
// block type appearing twice in the same file is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Root, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	evalCtx := l.evalCtx
	if evalCtx == nil {
		evalCtx = processEvalContext()
	}

	parser := hclparse.NewParser()
	root := config.NewRoot()

	for _, file := range paths {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		body, ok := hclFile.Body.(*hclsyntax.Body)
		if !ok {
			return nil, fmt.Errorf("unexpected body type %T in %s", hclFile.Body, file)
		}
		for name, attr := range body.Attributes {
			return nil, fmt.Errorf("%s: top-level attribute '%s' is not allowed, wrap it in a section block", attr.SrcRange, name)
		}

		seen := make(map[string]bool)
		for _, block := range body.Blocks {
			if seen[block.Type] {
				return nil, fmt.Errorf("%s: duplicate section '%s'", block.DefRange(), block.Type)
			}
			if len(block.Labels) > 0 {
				return nil, fmt.Errorf("%s: section '%s' does not take labels", block.DefRange(), block.Type)
			}
			seen[block.Type] = true
			root.Add(block.Type, &Section{body: block.Body, source: file, evalCtx: evalCtx})
		}
		logger.Debug("Parsed HCL file.", "file", file, "sections", len(body.Blocks))
	}

	return root, nil
}

// Section is a single HCL block.
type Section struct {
	body    hcl.Body
	source  string
	evalCtx *hcl.EvalContext
}

// Decode decodes the block into target, which must be a pointer to a struct
// with hcl tags. Optional attributes missing from the block keep the value
// target already holds.
func (s *Section) Decode(ctx context.Context, target any) error {
	ctxlog.FromContext(ctx).Debug("Decoding HCL section.", "source", s.source, "target", fmt.Sprintf("%T", target))
	if diags := gohcl.DecodeBody(s.body, s.evalCtx, target); diags.HasErrors() {
		return diags
	}
	return nil
}

// Source returns the file the block was read from.
func (s *Section) Source() string { return s.source }
