package openportal

// Version is the release of the engine reported by the CLI and the HTTP server.
const Version = "0.4.0"
