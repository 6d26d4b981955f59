package pyromb

import "github.com/pkg/errors"

// Fatal configuration and usage errors. Recoverable data-quality issues
// (unmatched reach endpoints, failed coordinate lookups, unreachable nodes)
// are not errors; they are logged and counted on the ConnectReport.
var (
	ErrNoOutlet          = errors.New("no outlet confluence found")
	ErrMultipleOutlets   = errors.New("multiple outlet confluences found")
	ErrMalformedTopology = errors.New("malformed catchment topology")
	ErrIndexOutOfRange   = errors.New("node index out of range")
	ErrNotConnected      = errors.New("catchment not connected")
)
