package utils

import (
	"crypto/rand"
	"fmt"
	"time"
)

// GenerateUUID returns a random v4 UUID.
func GenerateUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS cannot supply entropy
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// GenerateShortID returns an 8 character id.
func GenerateShortID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", uint32(time.Now().UnixNano()))
	}
	return fmt.Sprintf("%x", b)
}

// GenerateJobID returns an id for a batch tagging job.
func GenerateJobID() string {
	return "job_" + GenerateUUID()
}
