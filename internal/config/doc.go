// Package config loads the todo-mcp server configuration from YAML.
//
// Values of the form ${VAR_NAME} are expanded from the environment before
// parsing, so secrets can live outside the file. Missing files are not an
// error at the caller's discretion; Default returns a runnable local
// configuration.
package config
