// Package models - file.go defines the File metadata model for objects stored
// in a bucket, addressed by an opaque prefixed ID.
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// FileType enumerates the supported kinds of uploaded objects
type FileType string

const (
	FileTypeImage FileType = "IMAGE"
	FileTypeVideo FileType = "VIDEO"
)

// Valid reports whether the file type is a known value
func (t FileType) Valid() bool {
	return t == FileTypeImage || t == FileTypeVideo
}

// File represents metadata for an object stored in a bucket. The ID is an
// opaque prefixed token generated at creation and immutable afterwards.
// Location is "{owning-user-id}/{filename}" by caller convention; the registry
// does not enforce uniqueness or ownership of the key.
type File struct {
	ID       string   `db:"id" json:"id"`
	Filename string   `db:"filename" json:"filename"`
	Filetype FileType `db:"filetype" json:"filetype"`
	Bucket   string   `db:"bucket" json:"bucket"`
	Location string   `db:"location" json:"location"`
}

// NewFileID generates a prefixed opaque file identifier
func NewFileID() string {
	return fmt.Sprintf("file-%s", uuid.New().String())
}
