// Package log builds the structured zap logger used across devchain.
//
// A "debug" level selects zap's development preset, anything else the
// production preset. Format "console" gives colored human-readable lines,
// "json" gives one JSON object per line.
package log
