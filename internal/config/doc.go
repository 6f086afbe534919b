// Package config loads and normalizes promap configuration data.
//
// A run reads its settings once: repository defaults are applied first, then
// every key=value line of the override file replaces the matching default.
// Files ending in .toml are decoded as TOML with the same key names. The
// returned Config is treated as immutable for the rest of the run.
//
// Reference prefixes are deliberately not checked here. A missing genome or
// ribosomal index shows up as the failure of the stage that needs it.
package config
