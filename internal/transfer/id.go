package transfer

import "github.com/google/uuid"

// NewTransferID returns a fresh 16-byte random transfer_id, hex-encoded
// via its UUID string form (spec §3).
func NewTransferID() string {
	return uuid.New().String()
}
