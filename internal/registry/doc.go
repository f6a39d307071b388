// Package registry provides the ordered, keyed storage that backs every
// declaration table in gridkit.
//
// A Registry maps a key to exactly one value and remembers the order in which
// keys were registered. It has no behavior beyond storage and lookup:
// registering a key twice is an error and never overwrites the first value,
// and looking up a missing key is an error. The injection environment keeps
// its factory declarations here, and the application keeps its features here.
package registry
