// Package registry is the glue between unit names used on the command line
// or in a settings file and the compiled Go code that implements them.
//
// Every unit package exposes a Module whose Register method adds one or more
// named units. At startup the App registers all compiled-in modules, then the
// dispatcher asks the registry to build the selected unit: the unit's input
// struct is decoded from the HCL arguments supplied in the settings file and
// handed to the unit's constructor.
package registry
