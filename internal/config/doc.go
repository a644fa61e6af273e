// Package config loads, normalizes, and validates leafcam's TOML
// configuration.
//
// Configuration resolves from an explicit path, then
// ~/.config/leafcam/config.toml, then ./leafcam.toml. A missing file is not an
// error; defaults apply. Paths are expanded (~) and made absolute during load so
// downstream packages never deal with relative locations.
package config
