// Package config defines the format-agnostic model of help files, along with
// the Loader interface used to read them from disk.
//
// The `config.Model` is what the app hands to the registry: the merged help
// database and the templates declared next to it. Concrete file formats (HCL,
// JSON, YAML) are decoded in separate packages.
package config
