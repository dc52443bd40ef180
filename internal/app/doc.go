// Package app contains the core application logic. It owns the logger, the
// unit registry and the configuration loader, and runs the bootstrap
// pipeline (fetch, then dispatch) independently of any entrypoint.
package app
