package discovery

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTXTMapToStrings(t *testing.T) {
	got := TXTMapToStrings(map[string]string{
		"path":    "/api",
		"version": "1",
		"empty":   "",
	})

	// Keys are sorted for deterministic output.
	want := []string{"empty=", "path=/api", "version=1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TXTMapToStrings = %v, want %v", got, want)
	}
}

func TestTXTMapToStringsEmpty(t *testing.T) {
	if got := TXTMapToStrings(nil); got != nil {
		t.Errorf("TXTMapToStrings(nil) = %v, want nil", got)
	}
	if got := TXTMapToStrings(map[string]string{}); got != nil {
		t.Errorf("TXTMapToStrings(empty) = %v, want nil", got)
	}
}

func TestStringsToTXTMap(t *testing.T) {
	got := StringsToTXTMap([]string{"path=/api", "version=1", "flag", "eq=a=b", ""})

	want := map[string]string{
		"path":    "/api",
		"version": "1",
		"flag":    "",
		"eq":      "a=b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StringsToTXTMap = %v, want %v", got, want)
	}
}

// TestStringsToTXTMapNil verifies empty input maps to nil so callers can
// distinguish "no TXT data" from an empty map.
func TestStringsToTXTMapNil(t *testing.T) {
	if got := StringsToTXTMap(nil); got != nil {
		t.Errorf("StringsToTXTMap(nil) = %v, want nil", got)
	}
	if got := StringsToTXTMap([]string{""}); got != nil {
		t.Errorf("StringsToTXTMap([\"\"]) = %v, want nil", got)
	}
}

func TestValidateTXT(t *testing.T) {
	if err := ValidateTXT(map[string]string{"k": "v"}); err != nil {
		t.Errorf("ValidateTXT(small) error = %v", err)
	}
	if err := ValidateTXT(nil); err != nil {
		t.Errorf("ValidateTXT(nil) error = %v", err)
	}

	if err := ValidateTXT(map[string]string{"": "v"}); !errors.Is(err, ErrInvalidTXTRecord) {
		t.Errorf("empty key error = %v, want ErrInvalidTXTRecord", err)
	}
	if err := ValidateTXT(map[string]string{"a=b": "v"}); !errors.Is(err, ErrInvalidTXTRecord) {
		t.Errorf("key with '=' error = %v, want ErrInvalidTXTRecord", err)
	}

	big := map[string]string{"data": strings.Repeat("x", MaxTXTRecordSize)}
	if err := ValidateTXT(big); !errors.Is(err, ErrInvalidTXTRecord) {
		t.Errorf("oversized record error = %v, want ErrInvalidTXTRecord", err)
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("Office Printer"); err != nil {
		t.Errorf("ValidateInstanceName error = %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("a", MaxInstanceNameLen)); err != nil {
		t.Errorf("ValidateInstanceName at limit error = %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("a", MaxInstanceNameLen+1)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("over limit error = %v, want ErrInstanceNameTooLong", err)
	}
}
