// Package config loads user settings and derives the immutable values the
// other packages take: cluster.Config, autosize.Policy, OCR server
// credentials and edit modifier keys.
//
// Settings are layered by [Load]: built-in defaults, a JSON settings file,
// a .env file read with godotenv, then OCROVERLAY_* environment variables.
package config
