package statusfile

import "github.com/canopy-network/plugin-playground/pkg/plugin"

// WithStatusFile returns a plugin Option that maintains
// DataDirPath/playground.status.json.
func WithStatusFile() plugin.Option {
	return plugin.WithExtension(New())
}
