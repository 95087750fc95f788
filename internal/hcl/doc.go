// Package hcl decodes HCL help files into the format-agnostic `config.Model`.
//
// A help file mixes three kinds of content:
//
//	aboutHelp = "Shown next to the about field."
//
//	locale "fr" {
//	  aboutHelp = "Affiché à côté du champ."
//	}
//
//	template "inline" {
//	  source = "<em>{{.Text}}</em>"
//	}
//
// Top-level attributes are help entries. Strings become help text, objects and
// maps become nested tables, and numbers or booleans are converted to text.
// Each `locale` block adds a table under its label. Each `template` block
// registers a named template. Expressions are evaluated without variables or
// functions, so interpolation is rejected.
package hcl
