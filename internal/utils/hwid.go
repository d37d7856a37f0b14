package utils

import (
	"log/slog"

	"github.com/denisbrodbeck/machineid"
)

const hwidApp = "idesync"

// HWID is a stable, privacy-preserving identifier for this machine.
// Falls back to "unknown" when the platform doesn't expose a machine id.
var HWID = func() string {
	id, err := machineid.ProtectedID(hwidApp)
	if err != nil {
		slog.Warn("machine id unavailable", "error", err)
		return "unknown"
	}
	return id
}()
