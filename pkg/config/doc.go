// Package config loads diskcheck settings. Layers are applied in order: built-in
// defaults, then an optional YAML file, then explicit command-line overrides.
//
// Logging levels:
//   - V(2): effective configuration
//   - V(4): layer loading
package config
