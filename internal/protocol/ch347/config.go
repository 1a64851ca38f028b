// internal/protocol/ch347/config.go
package ch347

// Config selects the USB device when no hidraw path is given.
type Config struct {
	VendorID  uint16
	ProductID uint16
	Interface int
}
