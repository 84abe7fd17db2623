//go:build !consul

package store

import (
	"log"
)

// NewConsulDirectory returns a memory directory when the consul build tag is
// not enabled.
func NewConsulDirectory(addr string) Directory {
	log.Printf("consul directory requested (addr=%s) but consul build tag not enabled; using memory directory", addr)
	return NewMemoryDirectory()
}
