// Package id provides unique identifier generation for request records and
// stored files.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Hex returns a random UUIDv4 as 32 lowercase hex characters.
// Example: 3f2b9c0e5d7a4e1f8b6c2d9e0a1b4c7d
func Hex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Generate creates a new unique job ID.
// Format: job-<hex>
func Generate() string {
	return "job-" + Hex()
}
