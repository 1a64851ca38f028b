// internal/driver/profile.go
package driver

import (
	"errors"
	"fmt"
)

// ErrSpeedTooHigh is returned for a link speed above the model's ceiling.
var ErrSpeedTooHigh = errors.New("link speed above model maximum")

// Profile names the registers and actions a camera model uses.
type Profile struct {
	Model       string `json:"model"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`

	RegProbe      int `json:"reg_probe"`
	RegFrame      int `json:"reg_frame"`
	RegImageCount int `json:"reg_image_count"`
	RegImageSize  int `json:"reg_image_size"`
	RegImage      int `json:"reg_image"`
	RegThumbnail  int `json:"reg_thumbnail"`
	RegMetadata   int `json:"reg_metadata"`

	ActionSnapshot int    `json:"action_snapshot"`
	ActionPowerOff int    `json:"action_power_off"`
	PowerOffArg    []byte `json:"-"`

	// MetadataTimeOffset locates the little-endian creation time in the
	// metadata blob. All ones there means the camera does not know.
	MetadataTimeOffset int `json:"metadata_time_offset"`

	PowerOffWaits bool `json:"power_off_waits"`
	MaxSpeed      int  `json:"max_speed"`
}

// photoPC is the register map shared by the Epson PhotoPC family and the
// cameras built on the same firmware.
func photoPC(model, vendor, description string) Profile {
	return Profile{
		Model:              model,
		Vendor:             vendor,
		Description:        description,
		RegProbe:           1,
		RegFrame:           4,
		RegImageCount:      10,
		RegImageSize:       12,
		RegImage:           14,
		RegThumbnail:       15,
		RegMetadata:        47,
		ActionSnapshot:     2,
		ActionPowerOff:     4,
		PowerOffArg:        []byte{0},
		MetadataTimeOffset: 20,
		PowerOffWaits:      true,
		MaxSpeed:           115200,
	}
}

// LinkSpeed resolves a configured speed against MaxSpeed. Zero selects the
// ceiling; a profile without a ceiling passes the speed through.
func (p Profile) LinkSpeed(baud int) (int, error) {
	switch {
	case p.MaxSpeed == 0:
		return baud, nil
	case baud == 0:
		return p.MaxSpeed, nil
	case baud > p.MaxSpeed:
		return 0, fmt.Errorf("%s: %d baud: %w (%d)", p.Model, baud, ErrSpeedTooHigh, p.MaxSpeed)
	}
	return baud, nil
}
