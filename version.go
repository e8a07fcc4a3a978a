// Package codewiki is a client for the codewiki documentation tool.
package codewiki

// Version is the release version (set via -ldflags).
var Version = "dev"
