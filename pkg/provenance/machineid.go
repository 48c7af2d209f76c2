package provenance

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID fetches a stable identifier for the host running the engine,
// recorded alongside each persisted run for provenance.
func MachineID() (string, error) {
	return machineid.ID()
}
