// internal/model/image.go
package model

import (
	"fmt"
	"time"
)

// Namespace directories
const (
	DirPictures  = "pics"
	DirSequences = "seqs"
	DirClips     = "clips"
)

// File modes of the camera namespace
const (
	ModeDirectory uint32 = 0o555
	ModeImage     uint32 = 0o444
)

// Directories lists the namespace root in display order.
var Directories = []string{DirPictures, DirSequences, DirClips}

// Image represents a picture stored in the camera
type Image struct {
	Name        string     `json:"name" db:"name"`
	Slot        int        `json:"slot" db:"slot"`
	Size        int64      `json:"size" db:"size"`
	Mode        uint32     `json:"mode" db:"mode"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Digest      *string    `json:"digest,omitempty" db:"digest"`
	CachedAt    *time.Time `json:"cached_at,omitempty" db:"cached_at"`
	CatalogedAt time.Time  `json:"cataloged_at" db:"cataloged_at"`
}

// ImageName builds pics/YYYYMMDD_NNN.jpg from the UTC creation date and
// the slot.
func ImageName(created time.Time, slot int) string {
	return fmt.Sprintf("%s/%s_%03d.jpg", DirPictures, created.UTC().Format("20060102"), slot)
}

// BaseName returns the name without its directory.
func (i *Image) BaseName() string {
	return i.Name[len(DirPictures)+1:]
}

// IsCached reports whether the image bytes are in the blob cache
func (i *Image) IsCached() bool {
	return i.Digest != nil
}

// DirEntry represents one entry of a directory listing
type DirEntry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Mode    string    `json:"mode"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Directory represents a listed directory
type Directory struct {
	Name    string     `json:"name"`
	Mode    string     `json:"mode"`
	Entries []DirEntry `json:"entries"`
}

// FormatMode renders a permission mode the way ls does.
func FormatMode(mode uint32, dir bool) string {
	const rwx = "rwxrwxrwx"
	b := []byte("----------")
	if dir {
		b[0] = 'd'
	}
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i]
		}
	}
	return string(b)
}
