// Package uid generates request ids and random suffixes.
package uid

import "github.com/google/uuid"

// maxRequestIDLength bounds client-supplied request ids.
const maxRequestIDLength = 64

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// Short returns the first n hex characters of a random UUID.
func Short(n int) string {
	s := uuid.New().String()
	if n <= 0 || n > 8 {
		n = 8
	}
	return s[:n]
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Acceptable reports whether a client-supplied request id can be echoed back.
func Acceptable(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
