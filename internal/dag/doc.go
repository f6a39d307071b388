// Package dag records the dependency edges discovered while an injection
// environment constructs its components, and turns them into a stable start
// order for the lifecycle manager.
//
// Edges point from a dependency to its dependent: AddEdge("db", "api") means
// "api depends on db". Sort returns a topological order in which every
// dependency precedes its dependents, with ties broken by the caller-supplied
// order (normally registration order).
package dag
