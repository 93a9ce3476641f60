// Package config handles configuration loading and management for hitdesk.
//
// It provides functionality for:
//   - Loading configuration from .hitdesk.json or .hitdesk.yaml files
//   - Default configuration values
//   - Merging file settings with command-line overrides
package config
