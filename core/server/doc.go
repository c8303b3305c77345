// Package server holds the HTTP server configuration.
//
// The Config struct defines the HTTP port, the API key protecting every
// route except the swagger docs, and the graceful shutdown budget.
//
// This package is used by core/config to embed server settings and by the
// start command to listen and shut down.
package server
