// Package config loads, normalizes, and validates hevcify configuration.
//
// Configuration lives in a TOML file (default ~/.config/hevcify/config.toml)
// and is merged over built-in defaults. Path fields are expanded to absolute
// paths during normalization so the rest of the program never sees "~".
package config
