package discovery

import (
	"fmt"
	"strings"
)

// Protocols accepted in a DNS-SD service type.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// ParseServiceType splits a DNS-SD service type into its bare service
// label and protocol: "_http._tcp." yields ("http", "tcp"). The input
// is accepted with or without the trailing dot, and extra domain labels
// after the protocol are ignored.
//
// Malformed input falls back to the DefaultServiceType pairing when
// strict is false, or returns ErrInvalidServiceType when strict is
// true.
func ParseServiceType(raw string, strict bool) (label, protocol string, err error) {
	label, protocol, err = splitServiceType(raw)
	if err == nil {
		return label, protocol, nil
	}
	if strict {
		return "", "", err
	}

	// Forgiving mode: the default pairing is always well-formed.
	label, protocol, _ = splitServiceType(DefaultServiceType)
	return label, protocol, nil
}

// FullServiceType reconstructs the canonical dot-terminated form from a
// bare service label and protocol, e.g. ("http", "tcp") -> "_http._tcp.".
func FullServiceType(label, protocol string) string {
	return "_" + label + "._" + protocol + "."
}

func splitServiceType(raw string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidServiceType)
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidServiceType, raw)
	}

	label := parts[0]
	if len(label) < 2 || label[0] != '_' {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidServiceType, raw)
	}
	label = label[1:]

	protocol := parts[1]
	if len(protocol) < 2 || protocol[0] != '_' {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidServiceType, raw)
	}
	protocol = protocol[1:]
	if protocol != ProtocolTCP && protocol != ProtocolUDP {
		return "", "", fmt.Errorf("%w: protocol %q", ErrInvalidServiceType, protocol)
	}

	return label, protocol, nil
}
