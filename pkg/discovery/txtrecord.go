package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTMapToStrings converts key-value metadata to the "key=value" string
// form mDNS libraries expect. Keys are emitted in sorted order so the
// output is deterministic.
func TXTMapToStrings(txt map[string]string) []string {
	if len(txt) == 0 {
		return nil
	}

	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+txt[k])
	}
	return out
}

// StringsToTXTMap parses "key=value" strings into a map. Entries
// without '=' become keys with an empty value. Returns nil for empty
// input so callers can distinguish "no TXT data" from an empty map.
func StringsToTXTMap(records []string) map[string]string {
	if len(records) == 0 {
		return nil
	}

	txt := make(map[string]string, len(records))
	for _, record := range records {
		if record == "" {
			continue
		}
		key, value, _ := strings.Cut(record, "=")
		txt[key] = value
	}
	if len(txt) == 0 {
		return nil
	}
	return txt
}

// ValidateTXT checks TXT metadata against DNS-SD limits: each key
// non-empty and free of '=', and the encoded record total within
// MaxTXTRecordSize bytes.
func ValidateTXT(txt map[string]string) error {
	total := 0
	for k, v := range txt {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidTXTRecord)
		}
		if strings.Contains(k, "=") {
			return fmt.Errorf("%w: key %q contains '='", ErrInvalidTXTRecord, k)
		}
		// Each entry is length-prefixed on the wire: 1 + len("k=v").
		total += 1 + len(k) + 1 + len(v)
	}
	if total > MaxTXTRecordSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidTXTRecord, total, MaxTXTRecordSize)
	}
	return nil
}

// ValidateInstanceName checks the DNS label length limit.
func ValidateInstanceName(name string) error {
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
