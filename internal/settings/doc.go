// Package settings reads the optional HCL settings file.
//
// The file can set where the configuration resource lives, the failure
// policy, and which unit receives the configuration along with that unit's
// arguments. Expressions may reference the process environment through the
// `env` variable, e.g. `token = env.DASHBOOT_TOKEN`.
package settings
