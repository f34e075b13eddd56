// Package assets embeds the data files shipped with the binaries.
package assets

import _ "embed"

// DefaultConfig is the YAML every configuration is layered on.
//
//go:embed default.yaml
var DefaultConfig []byte
