package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/helpme/internal/config"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/helpdb"
)

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Locales   []*localeBlock   `hcl:"locale,block"`
	Templates []*templateBlock `hcl:"template,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type localeBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type templateBlock struct {
	Name   string `hcl:"name,label"`
	Source string `hcl:"source"`
}

// Decode parses one HCL help file. filename is only used in diagnostics.
func Decode(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	model := config.NewModel()

	entries, err := decodeEntries(root.Remain)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", filename, err)
	}
	helpdb.Merge(model.Database, entries)

	for _, lb := range root.Locales {
		entries, err := decodeEntries(lb.Body)
		if err != nil {
			return nil, fmt.Errorf("in %s, locale %q: %w", filename, lb.Name, err)
		}
		helpdb.Merge(model.Database, helpdb.Table{lb.Name: helpdb.Nested(entries)})
	}

	for _, tb := range root.Templates {
		if _, dup := model.Templates[tb.Name]; dup {
			logger.Warn("Template declared twice in one file, the last one wins.", "file", filename, "template", tb.Name)
		}
		model.Templates[tb.Name] = tb.Source
	}

	logger.Debug("Decoded HCL help file.",
		"file", filename,
		"entries", len(model.Database),
		"locales", len(root.Locales),
		"templates", len(model.Templates),
	)
	return model, nil
}

// decodeEntries turns the attributes of body into help entries.
func decodeEntries(body hcl.Body) (helpdb.Table, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(helpdb.Table, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid value for %q: %w", name, diags)
		}
		v, err := valueFromCty(val)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q at %s: %w", name, attr.Range.String(), err)
		}
		out[name] = v
	}
	return out, nil
}
