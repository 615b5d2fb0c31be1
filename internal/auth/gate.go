// Package auth decides read/write permission on file records, hashes
// passwords, and resolves session tokens to user identities.
package auth

import (
	"github.com/fileden/fileden/internal/model"
)

// CanRead reports whether caller may read the record: public records are
// readable by anyone, private ones only by their owner. Folders follow the
// same rule for their metadata and listings.
func CanRead(rec *model.FileRecord, callerID int64) bool {
	return rec.IsPublic || rec.OwnerID == callerID
}

// CanWrite reports whether caller may mutate the record. Only the owner may;
// there is no sharing model.
func CanWrite(rec *model.FileRecord, callerID int64) bool {
	return rec.OwnerID == callerID
}
