package models

import (
	"fmt"
	"strings"
)

// ProxyKind identifies a proxy implementation and therefore its wire format
type ProxyKind int

const (
	// ProxyKindUnknown is the zero value and never valid
	ProxyKindUnknown ProxyKind = iota
	// ProxyKindCorvus answers INFO and PROXY INFO
	ProxyKindCorvus
	// ProxyKindCerberus answers a raw PROXY status query with per-thread values
	ProxyKindCerberus
)

func (k ProxyKind) String() string {
	switch k {
	case ProxyKindCorvus:
		return "corvus"
	case ProxyKindCerberus:
		return "cerberus"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and logs
func (k ProxyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (k *ProxyKind) UnmarshalText(text []byte) error {
	kind, err := ParseProxyKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// UnsupportedProxyKindError is returned for a proxy implementation
// nobody knows how to query. It points at misconfiguration and is never retried.
type UnsupportedProxyKindError struct {
	Kind string
}

func (e *UnsupportedProxyKindError) Error() string {
	return fmt.Sprintf("unsupported proxy kind: %q (supported: corvus, cerberus)", e.Kind)
}

// ParseProxyKind resolves a configured kind name
func ParseProxyKind(name string) (ProxyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "corvus":
		return ProxyKindCorvus, nil
	case "cerberus":
		return ProxyKindCerberus, nil
	default:
		return ProxyKindUnknown, &UnsupportedProxyKindError{Kind: name}
	}
}
