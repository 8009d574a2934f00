// Package discovery implements bounded mDNS/DNS-SD service discovery
// and advertisement on the local network.
//
// # Discovery
//
// A discovery run is a single time-boxed browse-and-resolve pipeline.
// The Discoverer drives a Transport browse, resolves each candidate as
// it appears, deduplicates the results, and finishes on the first of
// three triggers:
//
//  1. Early exit: a target name filter is set and a resolved candidate
//     matches it.
//  2. Settle window: no browse activity and no resolves in flight for a
//     short quiescence period.
//  3. Hard timeout: the caller's time budget expires, unconditionally.
//
// The result is always produced exactly once; late resolve completions
// are discarded. Transport-level browse failures do not abort a run -
// they are reported in the result alongside whatever was found.
//
// # Advertisement
//
// The Advertiser owns at most one outbound publication at a time.
// Starting a new advertisement stops any previous one first, and Stop
// is idempotent.
//
// # Transports
//
// Two Transport implementations are provided: ZeroconfTransport
// (preferred, multicast via enbility/zeroconf) and HashicorpTransport
// (fallback, via hashicorp/mdns). The state machine is written against
// the Transport interface only, so tests inject scripted fakes.
//
// # Name matching
//
// Operating systems append a " (N)" suffix to advertised instance names
// to keep them unique. Matching therefore normalizes both sides before
// comparing, and a known base name matches its suffixed instances. The
// prefix rule is deliberately permissive: a short target can match an
// unrelated longer name sharing the prefix. Callers supplying short
// targets accept that over-matching.
package discovery
