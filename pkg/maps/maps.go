// Package maps is the map-display collaborator: hand it a coordinate and a
// label and it fires the platform map viewer, with no return contract.
package maps

import (
	"fmt"
	"os/exec"
	"runtime"
)

// URL builds an OpenStreetMap link centered on the coordinate with a marker.
func URL(lat, lng float64) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=15/%s/%s",
		formatCoord(lat), formatCoord(lng), formatCoord(lat), formatCoord(lng))
}

// Open launches the platform browser on the map URL. Fire-and-forget: the
// label is only used for logging by callers, and failures to launch are
// returned but carry no state.
func Open(lat, lng float64, label string) error {
	target := URL(lat, lng)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open map for %q: %w", label, err)
	}
	return nil
}

func formatCoord(f float64) string {
	return fmt.Sprintf("%.6f", f)
}
