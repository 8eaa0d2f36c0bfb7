// Package api provides the HTTP API server for the memory graph: fact
// recording, ranked retrieval, conversation lifecycle, feedback, and
// import/export.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
}
