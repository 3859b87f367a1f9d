// Package config loads the device's on-disk configuration: the data
// directory, listen address, and logging options. Values come from an
// optional YAML file merged with command-line flags, the way the
// teacher's cobra command tree merges persistent flags into cmd/warren.
package config
