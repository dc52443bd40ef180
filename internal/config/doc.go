// Package config defines the configuration payload handed from the loader to
// the dispatched unit, the Loader interface that produces it, and the
// failure policy that decides what a failed load means for the process.
//
// The payload is deliberately opaque: nothing in this repository inspects
// its fields. Units decode it into whatever shape they need.
package config
