// Package app contains the application shell. It assembles features into an
// injection environment, loads configuration, and drives the lifecycle,
// decoupled from any specific entrypoint like a CLI.
package app
