package discovery

import "context"

// Candidate identifies a service found by a browse before it has been
// resolved to connection details.
type Candidate struct {
	// Instance is the advertised instance name, e.g. "Office Printer (2)".
	Instance string

	// Service is the service type the candidate was found under,
	// without the domain, e.g. "_http._tcp".
	Service string

	// Domain is the mDNS domain, e.g. "local.".
	Domain string
}

// ResolveData is the outcome of resolving a candidate.
type ResolveData struct {
	// Port is the service port.
	Port int

	// Hosts contains numeric IP address strings.
	Hosts []string

	// Txt is the published metadata. Nil when the transport cannot
	// supply TXT data or none was published.
	Txt map[string]string
}

// Publication describes an outbound advertisement.
type Publication struct {
	Name   string
	Type   string // canonical dot-terminated form
	Domain string
	Port   int
	Txt    map[string]string
}

// BrowseEventKind classifies a browse event.
type BrowseEventKind uint8

const (
	// BrowseFound reports a newly visible candidate.
	BrowseFound BrowseEventKind = iota

	// BrowseLost reports a candidate that disappeared.
	BrowseLost

	// BrowseError reports a transport-level browse failure.
	BrowseError
)

// String returns the event kind name.
func (k BrowseEventKind) String() string {
	switch k {
	case BrowseFound:
		return "FOUND"
	case BrowseLost:
		return "LOST"
	case BrowseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// BrowseEvent is one event emitted by a Transport browse.
type BrowseEvent struct {
	Kind      BrowseEventKind
	Candidate Candidate
	Err       error // set when Kind is BrowseError
}

// Transport supplies the OS-level mDNS primitives the discovery state
// machine is built on. Implementations must not close the events
// channel; they stop sending when the browse context is cancelled.
type Transport interface {
	// Browse starts watching for services of the given type and posts
	// found/lost/error events until ctx is cancelled. The service type
	// is passed in canonical dot-terminated form.
	Browse(ctx context.Context, serviceType, domain string, events chan<- BrowseEvent) error

	// Resolve turns a candidate into concrete connection details. The
	// context carries the time budget for the attempt.
	Resolve(ctx context.Context, c Candidate) (ResolveData, error)

	// Publish starts advertising and returns the name actually
	// published. The returned name is authoritative: the platform may
	// have uniquified it to avoid a collision.
	Publish(ctx context.Context, p Publication) (string, error)

	// Unpublish stops the current advertisement. Calling it with no
	// active advertisement is a no-op.
	Unpublish() error
}
