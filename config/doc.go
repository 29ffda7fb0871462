// Package config loads the proxy configuration from a YAML file and
// environment variables. It covers the admin API server, logging, health
// checks, circuit breakers, metrics export and the link groups with their
// target servers.
package config
