// Package app wires the dashboard server together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, an optional YAML file and SALES_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Load the sales table into the cache (failure is fatal)
//	4. Create the dashboard and health services
//	5. Set up middleware, HTTP routes, the /ws session handler and /metrics
//
// # Graceful Shutdown
//
// Run returns when its context is canceled or SIGINT/SIGTERM arrives. Open
// WebSocket sessions receive a going-away close frame, in-flight requests
// are allowed to finish within Server.ShutdownTimeout and telemetry is
// flushed.
//
// Initialization errors are returned to the caller; the app never calls
// os.Exit itself.
package app
