// Package stablehash provides a deterministic, non-cryptographic hash for
// symbol strings. The value depends only on the symbol's bytes, so it is
// identical across runs, processes and languages (32-bit FNV-1a).
package stablehash

import "hash/fnv"

// Symbol returns the 32-bit FNV-1a hash of s.
func Symbol(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
