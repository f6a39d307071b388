// Package hcl provides the HCL implementation of config.Loader.
//
// Every top-level block of a file is a configuration section named after the
// block type:
//
//	web {
//	  address          = ":${env.PORT}"
//	  shutdown_timeout = "15s"
//	}
//
// Expressions are evaluated with the process environment available as
// env.<NAME> and the upper, lower and coalesce functions. Sections decode
// through gohcl, so settings structs use hcl struct tags.
package hcl
