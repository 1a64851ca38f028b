// internal/model/camera.go
package model

import "time"

// CameraStatus represents the current state of the camera link
type CameraStatus string

const (
	CameraStatusIdle       CameraStatus = "IDLE"
	CameraStatusConnecting CameraStatus = "CONNECTING"
	CameraStatusBusy       CameraStatus = "BUSY"
	CameraStatusError      CameraStatus = "ERROR"
	CameraStatusOff        CameraStatus = "POWERED_OFF"
)

// CameraInfo is the status report of the camera service
type CameraInfo struct {
	Model       string       `json:"model"`
	Vendor      string       `json:"vendor"`
	Device      string       `json:"device"`
	Transport   string       `json:"transport"`
	BaudRate    int          `json:"baud_rate"`
	Status      CameraStatus `json:"status"`
	ImageCount  int          `json:"image_count"`
	LastRefresh *time.Time   `json:"last_refresh,omitempty"`
	LastSession *time.Time   `json:"last_session,omitempty"`
	LastError   *string      `json:"last_error,omitempty"`
	LastCode    *int         `json:"last_error_code,omitempty"`
	Sessions    int64        `json:"sessions"`
	Link        any          `json:"link,omitempty"`
}

// RegisterValue is a register read or written for diagnostics
type RegisterValue struct {
	Register int    `json:"register"`
	Value    uint32 `json:"value"`
}
