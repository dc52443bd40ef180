// Package cli parses command-line arguments, merges them with the optional
// settings file, and carries process exit codes back to main.
package cli
