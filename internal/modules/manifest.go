// Package modules holds the handler manifest: every subscription in the
// process is listed here, in registration order.
package modules

import (
	"github.com/samber/lo"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
)

// Module is anything that contributes handlers to the bus.
type Module interface {
	Registrations() []eventbus.Registration
}

// Registrations concatenates the handlers of mods. Handlers for one event type
// run in this order.
func Registrations(mods ...Module) []eventbus.Registration {
	return lo.FlatMap(mods, func(m Module, _ int) []eventbus.Registration {
		return m.Registrations()
	})
}

// Register installs the manifest on bus.
func Register(bus *eventbus.Bus, mods ...Module) error {
	return bus.RegisterAll(Registrations(mods...))
}
