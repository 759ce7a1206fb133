// Package config loads, normalizes, and validates seqpoll configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours
// environment fallbacks such as FLOWCELLTOOL_URL and FLOWCELLTOOL_AUTH_TOKEN.
// The Config type centralizes every knob the poller and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
