// Package config loads and merges critiq configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CRITIQ_MODEL, CRITIQ_FORMAT, CRITIQ_EVENT, etc.)
//  3. Config file ($XDG_CONFIG_HOME/critiq/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], and [SetField] to update a single
// key for `critiq config set`.
package config
