// internal/discovery/usb/scanner_nocgo.go

//go:build !cgo

package usb

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"camera-service/internal/discovery"
)

type Scanner struct{}

func NewScanner(*zap.Logger) *Scanner { return &Scanner{} }

func (s *Scanner) GetScannerType() string { return "ch347" }

func (s *Scanner) IsAvailable() bool { return false }

func (s *Scanner) Scan(context.Context) ([]*discovery.Port, error) {
	return nil, errors.New("hid enumeration requires cgo")
}
