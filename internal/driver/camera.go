// internal/driver/camera.go
package driver

import (
	"encoding/binary"
	"fmt"
	"time"

	"camera-service/internal/eph"
)

// Link is the command set a camera driver needs. *eph.Connection
// implements it.
type Link interface {
	GetInt(reg int) (uint32, error)
	SetInt(reg int, v uint32) error
	Action(reg int, arg []byte) error
	GetVar(reg int, dst []byte) ([]byte, error)
	StreamVar(reg int) (int64, error)
	SetStoreFunc(fn eph.StoreFunc)
}

// ImageInfo describes one picture slot.
type ImageInfo struct {
	Slot    int       `json:"slot"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

const unknownTime = 0xffffffff

// Camera runs profile-level operations over an open link.
type Camera struct {
	link    Link
	profile Profile
	now     func() time.Time
}

// NewCamera binds a link to a profile
func NewCamera(link Link, profile Profile) *Camera {
	return &Camera{link: link, profile: profile, now: time.Now}
}

// SetClock replaces the time source used for images with no timestamp.
func (c *Camera) SetClock(now func() time.Time) { c.now = now }

// Probe reads the probe register; a camera that answers is ready.
func (c *Camera) Probe() (uint32, error) {
	v, err := c.link.GetInt(c.profile.RegProbe)
	if err != nil {
		return 0, fmt.Errorf("probe: %w", err)
	}
	return v, nil
}

// Count returns the number of stored pictures.
func (c *Camera) Count() (int, error) {
	v, err := c.link.GetInt(c.profile.RegImageCount)
	if err != nil {
		return 0, fmt.Errorf("image count: %w", err)
	}
	return int(v), nil
}

// Select makes slot the current picture. Slots start at 1.
func (c *Camera) Select(slot int) error {
	if slot < 1 {
		return fmt.Errorf("select slot %d: slots start at 1", slot)
	}
	if err := c.link.SetInt(c.profile.RegFrame, uint32(slot)); err != nil {
		return fmt.Errorf("select slot %d: %w", slot, err)
	}
	return nil
}

// Describe selects slot and reads its size and creation time.
func (c *Camera) Describe(slot int) (ImageInfo, error) {
	if err := c.Select(slot); err != nil {
		return ImageInfo{}, err
	}
	size, err := c.link.GetInt(c.profile.RegImageSize)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("slot %d size: %w", slot, err)
	}
	blob, err := c.link.GetVar(c.profile.RegMetadata, make([]byte, 0, eph.BlockSize))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("slot %d metadata: %w", slot, err)
	}
	return ImageInfo{Slot: slot, Size: int64(size), Created: c.createdAt(blob)}, nil
}

func (c *Camera) createdAt(blob []byte) time.Time {
	off := c.profile.MetadataTimeOffset
	if len(blob) < off+4 {
		return c.now().UTC()
	}
	ts := binary.LittleEndian.Uint32(blob[off:])
	if ts == unknownTime {
		return c.now().UTC()
	}
	return time.Unix(int64(ts), 0).UTC()
}

// Fetch selects slot and streams its image through store.
func (c *Camera) Fetch(slot int, store eph.StoreFunc) (int64, error) {
	if err := c.Select(slot); err != nil {
		return 0, err
	}
	c.link.SetStoreFunc(store)
	defer c.link.SetStoreFunc(nil)
	n, err := c.link.StreamVar(c.profile.RegImage)
	if err != nil {
		return n, fmt.Errorf("slot %d image: %w", slot, err)
	}
	return n, nil
}

// Thumbnail selects slot and reads its thumbnail.
func (c *Camera) Thumbnail(slot int) ([]byte, error) {
	if err := c.Select(slot); err != nil {
		return nil, err
	}
	b, err := c.link.GetVar(c.profile.RegThumbnail, nil)
	if err != nil {
		return nil, fmt.Errorf("slot %d thumbnail: %w", slot, err)
	}
	return b, nil
}

// Snapshot takes a picture and waits for the camera to store it.
func (c *Camera) Snapshot() error {
	if err := c.link.Action(c.profile.ActionSnapshot, []byte{0}); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Register reads any register, for diagnostics.
func (c *Camera) Register(reg int) (uint32, error) {
	return c.link.GetInt(reg)
}

// SetRegister writes any register, for diagnostics.
func (c *Camera) SetRegister(reg int, v uint32) error {
	return c.link.SetInt(reg, v)
}
