package models

import (
	"fmt"
	"net"
	"strconv"
)

// Role tells a Redis node target apart from a proxy target
type Role string

const (
	RoleNode  Role = "node"
	RoleProxy Role = "proxy"
)

// Target is one polled address
type Target struct {
	Addr      string    `json:"addr"` // host:port
	Role      Role      `json:"role"`
	ProxyKind ProxyKind `json:"proxy_kind,omitempty"`
}

// SplitAddr splits host:port and validates the port
func SplitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in address %q", addr)
	}
	return host, port, nil
}
