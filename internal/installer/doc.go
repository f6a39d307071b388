// Package installer attaches modules to a host component in priority order.
//
// A module is any component of the main environment implementing
// Module[H] for the host type H. Use declares an Installer in the meta
// environment; the Installer is a service, so it runs during StartAll,
// before any service of the main environment (the host included) starts.
//
// Modules install by descending priority. Modules with equal priority
// install in the order they were declared. Modules without an
// InstallPriority method get DefaultPriority.
package installer
