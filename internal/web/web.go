// Package web embeds the built-in touch client served by the bridge.
package web

import "embed"

//go:embed index.html
var Assets embed.FS
