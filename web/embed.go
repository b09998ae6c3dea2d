// Package web embeds the built frontend assets for single-binary distribution.
package web

import "embed"

// Assets contains the frontend production build output.
//
//go:embed all:build
var Assets embed.FS
