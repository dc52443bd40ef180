// Package loader fetches the configuration resource over HTTP.
//
// A load is a single GET of a fixed resource resolved against a base URL.
// Only an exact 200 response is treated as success; the body must then hold
// one JSON document. Start wraps a load in a single-shot channel so callers
// can await the result the same way they await any other one-off event.
package loader
