package log

import "time"

// Event is one captured discovery or advertisement event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the discovery or advertisement session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"3,keyasint"`

	// Service is the full dot-terminated service type, when known.
	Service string `cbor:"4,keyasint,omitempty"`

	// Instance is the candidate instance name, when the event concerns one.
	Instance string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Browse  *BrowseData  `cbor:"6,keyasint,omitempty"`
	Resolve *ResolveData `cbor:"7,keyasint,omitempty"`
	Publish *PublishData `cbor:"8,keyasint,omitempty"`
	Finish  *FinishData  `cbor:"9,keyasint,omitempty"`
	Error   *ErrorData   `cbor:"10,keyasint,omitempty"`
}

// Category classifies a captured event.
type Category uint8

const (
	// CategoryBrowse is a browse-level event (found/lost/error).
	CategoryBrowse Category = 0
	// CategoryResolve is a resolve attempt outcome.
	CategoryResolve Category = 1
	// CategoryPublish is an advertisement start or stop.
	CategoryPublish Category = 2
	// CategorySession is a session lifecycle event.
	CategorySession Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryBrowse:
		return "BROWSE"
	case CategoryResolve:
		return "RESOLVE"
	case CategoryPublish:
		return "PUBLISH"
	case CategorySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// BrowseData describes a browse event.
type BrowseData struct {
	// Kind is the browse event kind: "FOUND", "LOST" or "ERROR".
	Kind string `cbor:"1,keyasint"`
}

// ResolveData describes the outcome of one resolve attempt.
type ResolveData struct {
	// Success is false when the candidate failed to resolve. Resolve
	// failures never surface in results, so the capture stream is the
	// only place they are visible.
	Success bool `cbor:"1,keyasint"`

	// Port is the resolved port (zero on failure).
	Port int `cbor:"2,keyasint,omitempty"`

	// HostCount is the number of resolved addresses.
	HostCount int `cbor:"3,keyasint,omitempty"`

	// Discarded is true when the outcome arrived after the session
	// terminated or for a candidate that was lost mid-resolve.
	Discarded bool `cbor:"4,keyasint,omitempty"`
}

// PublishData describes an advertisement start or stop.
type PublishData struct {
	// Publishing is the advertisement state after the operation.
	Publishing bool `cbor:"1,keyasint"`

	// Port is the advertised port (zero for stops).
	Port int `cbor:"2,keyasint,omitempty"`

	// FinalName is the authoritative name returned by the transport.
	FinalName string `cbor:"3,keyasint,omitempty"`
}

// FinishData describes how a discovery session terminated.
type FinishData struct {
	// Trigger names the finish trigger: "EARLY_EXIT", "SETTLE",
	// "HARD_TIMEOUT" or "CANCELLED".
	Trigger string `cbor:"1,keyasint"`

	// ServicesFound is the size of the final result set.
	ServicesFound int `cbor:"2,keyasint"`

	// Elapsed is the session duration in milliseconds.
	Elapsed int64 `cbor:"3,keyasint"`
}

// ErrorData carries a failure description.
type ErrorData struct {
	// Message is the human-readable cause.
	Message string `cbor:"1,keyasint"`
}
