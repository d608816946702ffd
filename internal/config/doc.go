// Package config handles configuration loading, parsing, and validation
// from environment variables and optional config files. It provides
// type-safe access to the settings the server, worker pool, and external
// integrations need, keeping configuration details out of business logic.
package config
