// Package model contains the entity types shared across packages.
package model

import (
	"time"
)

// Kind classifies a record in the file tree. A named string type keeps the
// accepted values in one place instead of scattering raw strings around.
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindImage  Kind = "image"
)

// Valid reports whether k is one of the accepted kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

// HasBlob reports whether records of this kind carry byte content.
func (k Kind) HasBlob() bool {
	return k == KindFile || k == KindImage
}

// RootParentID is the sentinel parent for top-of-hierarchy records.
const RootParentID int64 = 0

// FileRecord is a row in the files table. BlobRef points at the stored bytes
// for file/image kinds and is empty for folders; it is never serialized.
type FileRecord struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"type"`
	ParentID  int64     `json:"parentId"`
	IsPublic  bool      `json:"isPublic"`
	BlobRef   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileView is the public projection of a FileRecord returned to callers.
// The blob reference and timestamps stay server-side.
type FileView struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"userId"`
	Name     string `json:"name"`
	Kind     Kind   `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID int64  `json:"parentId"`
}

// View builds the caller-facing projection.
func (r *FileRecord) View() FileView {
	return FileView{
		ID:       r.ID,
		OwnerID:  r.OwnerID,
		Name:     r.Name,
		Kind:     r.Kind,
		IsPublic: r.IsPublic,
		ParentID: r.ParentID,
	}
}
