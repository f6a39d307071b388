// Package config defines the format-agnostic configuration model of a
// gridkit application, along with the Loader interface used to read it.
//
// Configuration is split into named sections. Each feature decodes the
// section it owns into its own settings struct through Root.Section; a
// section that is absent leaves the struct at its defaults. Concrete loaders
// live in separate packages (hcl, yamlconfig); Multi dispatches to them by
// file extension.
package config
