// internal/driver/registry_init.go
package driver

// RegisterDefaultProfiles registers the built-in camera models
func RegisterDefaultProfiles(registry *Registry) {
	registry.Register(photoPC("photopc", "Epson", "Epson PhotoPC 500/550/600/700"))
	registry.Register(photoPC("olympus-d600l", "Olympus", "Olympus D-220L/D-320L/D-600L"))
	registry.Register(photoPC("sanyo-vpc-g200", "Sanyo", "Sanyo VPC-G200/G210"))
}
