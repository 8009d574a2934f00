package discovery

import (
	"errors"
	"strconv"
	"time"
)

// Defaults for discovery and advertisement.
const (
	// DefaultServiceType is used when a request does not name a service type.
	DefaultServiceType = "_http._tcp."

	// DefaultDomain is the conventional mDNS domain.
	DefaultDomain = "local."

	// DefaultTimeout is the hard discovery budget.
	DefaultTimeout = 3000 * time.Millisecond

	// DefaultSettleWindow is the quiescence period after which a browse
	// with no pending resolves is considered stable.
	DefaultSettleWindow = 350 * time.Millisecond

	// DefaultInstanceName is advertised when a broadcast request carries
	// no instance name.
	DefaultInstanceName = "go-mdns"
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400

	// MaxPort is the highest valid TCP/UDP port.
	MaxPort = 65535
)

// Discovery errors. Only caller-input validation surfaces as a hard
// error; runtime failures are carried inside result payloads.
var (
	ErrInvalidPort         = errors.New("port out of range 1-65535")
	ErrInvalidServiceType  = errors.New("invalid service type")
	ErrInvalidTimeout      = errors.New("invalid timeout")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrTransportRequired   = errors.New("transport is required")
)

// ServiceRecord is one discovered service.
type ServiceRecord struct {
	// Name is the instance name as advertised. It may carry an
	// OS-appended disambiguation suffix such as " (2)".
	Name string `json:"name"`

	// Type is the canonical dot-terminated service type, e.g. "_http._tcp.".
	Type string `json:"type"`

	// Domain is the administrative domain, conventionally "local.".
	Domain string `json:"domain"`

	// Port is the service port.
	Port int `json:"port"`

	// Hosts contains resolved numeric IP addresses, never hostnames.
	// Empty (not nil) when no address resolved.
	Hosts []string `json:"hosts"`

	// Txt is the published key-value metadata. Nil when the transport
	// cannot supply TXT data or none was published.
	Txt map[string]string `json:"txt,omitempty"`
}

// dedupKey is the identity used to deduplicate discovered services.
// Multiple instances can share a name before normalization, so identity
// is the triple (normalized name, port, first host address).
func (r *ServiceRecord) dedupKey() string {
	first := ""
	if len(r.Hosts) > 0 {
		first = r.Hosts[0]
	}
	return NormalizeInstanceName(r.Name) + "|" + strconv.Itoa(r.Port) + "|" + first
}

// DiscoverRequest describes one discovery run.
type DiscoverRequest struct {
	// Type is the service type to browse for. Defaults to "_http._tcp.".
	// Accepted with or without the trailing dot.
	Type string

	// Name optionally filters candidates by instance name. A discovered
	// name matches when it equals or extends the target after suffix
	// normalization. Empty means no filter.
	Name string

	// Domain defaults to "local.".
	Domain string

	// Timeout is the hard budget for the run. Defaults to 3 seconds.
	Timeout time.Duration

	// SettleWindow overrides the quiescence window. Zero uses the default.
	SettleWindow time.Duration

	// StrictType rejects malformed service types instead of falling back
	// to the default pairing.
	StrictType bool
}

// DiscoveryResult is the outcome of one discovery run.
//
// Error reflects transport-level browse failures only. Zero services
// found is a valid, non-error outcome.
type DiscoveryResult struct {
	Error         bool            `json:"error"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	ServicesFound int             `json:"servicesFound"`
	Services      []ServiceRecord `json:"services"`
}

// BroadcastRequest describes one advertisement.
type BroadcastRequest struct {
	// Type is the service type to advertise under. Defaults to "_http._tcp.".
	Type string

	// Name is the instance name. Falls back to DefaultInstanceName when
	// empty after trimming.
	Name string

	// Port is required, 1-65535.
	Port int

	// Txt is optional key-value metadata.
	Txt map[string]string
}

// BroadcastResult is the outcome of starting an advertisement.
type BroadcastResult struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Name is the name actually advertised. The transport may have
	// uniquified it; this value is authoritative.
	Name string `json:"name"`

	Publishing bool `json:"publishing"`
}

// StopBroadcastResult is the outcome of stopping an advertisement.
type StopBroadcastResult struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Publishing   bool   `json:"publishing"`
}
