package app

import (
	"github.com/vk/dashboot/internal/registry"
	"github.com/vk/dashboot/modules/plugin"
	"github.com/vk/dashboot/modules/postgres"
	"github.com/vk/dashboot/modules/print"
	"github.com/vk/dashboot/modules/socketio"
	"github.com/vk/dashboot/modules/wasm"
	"github.com/vk/dashboot/modules/webhook"
)

// coreModules is the definitive list of all units that are compiled into
// the dashboot binary.
var coreModules = []registry.Module{
	&print.Module{},
	&webhook.Module{},
	&socketio.Module{},
	&postgres.Module{},
	&wasm.Module{},
	&plugin.Module{},
}

// UnitCatalog returns the name and description of every compiled-in unit.
func UnitCatalog() [][2]string {
	reg := registry.New()
	for _, mod := range coreModules {
		mod.Register(reg)
	}
	var out [][2]string
	for _, name := range reg.Names() {
		desc, _ := reg.Describe(name)
		out = append(out, [2]string{name, desc})
	}
	return out
}
