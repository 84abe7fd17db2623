//go:build consul

package store

import (
	"global-relay/pkg/consul"
)

// NewConsulDirectory creates a Consul-backed directory (requires build tag consul).
func NewConsulDirectory(addr string) Directory {
	return consul.NewDirectory(addr)
}
