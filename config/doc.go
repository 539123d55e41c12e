// Package config is the named numeric configuration surface of the engine:
// chunk sizes, edge thresholds, ranking weights, expansion budgets, and
// connection settings, loaded from a TOML file over documented defaults.
package config
