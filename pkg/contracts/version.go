package contracts

import "fmt"

// Version is the release of the dashboard server and the salesreport tool.
const Version = "1.0.0"

// APIVersion names the HTTP and WebSocket contract in pkg/contracts/api.
const APIVersion = "v1"

// Commit is stamped at build time with
// -ldflags "-X salesdash/pkg/contracts.Commit=<sha>".
var Commit = "unknown"

// VersionString identifies a binary, e.g. "salesreport 1.0.0 (api v1, commit abc123)".
func VersionString(program string) string {
	return fmt.Sprintf("%s %s (api %s, commit %s)", program, Version, APIVersion, Commit)
}
