// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"camera-service/internal/config"
	"camera-service/internal/eph"
	"camera-service/internal/eph/simulator"
	"camera-service/internal/protocol/ch347"
	"camera-service/internal/protocol/serial"
)

// NewOpener creates the link opener selected by the camera configuration.
// Every opener is metered.
func NewOpener(cfg *config.CameraConfig, logger *zap.Logger) (*MeteredOpener, error) {
	var inner eph.Opener
	kind := Kind(cfg.Transport)

	switch kind {
	case KindSerial:
		inner = serial.NewOpener(serial.Config{
			DataBits:  cfg.Serial.DataBits,
			StopBits:  cfg.Serial.StopBits,
			Parity:    cfg.Serial.Parity,
			CtlSuffix: cfg.Serial.CtlSuffix,
		}, logger)
	case KindTCP:
		inner = NewTCPOpener(&TCPConfig{
			ConnectTimeout: cfg.TCP.ConnectTimeout,
			KeepAlive:      cfg.TCP.KeepAlive,
			WriteTimeout:   cfg.TCP.WriteTimeout,
		}, logger)
	case KindCH347:
		inner = ch347.NewOpener(ch347.Config{
			VendorID:  cfg.CH347.VendorID,
			ProductID: cfg.CH347.ProductID,
			Interface: cfg.CH347.Interface,
		}, logger)
	case KindSimulator:
		inner = simulator.New(simulator.SampleImages(cfg.Simulator.Images, time.Now().UTC())...)
	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}

	logger.Info("Creating link opener",
		zap.String("transport", cfg.Transport),
		zap.String("device", cfg.Device),
		zap.Int("baud_rate", cfg.BaudRate),
	)
	return NewMeteredOpener(kind, inner), nil
}

// Inner returns the wrapped opener.
func (m *MeteredOpener) Inner() eph.Opener {
	return m.inner
}
