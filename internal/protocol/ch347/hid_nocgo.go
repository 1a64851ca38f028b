// internal/protocol/ch347/hid_nocgo.go

//go:build !cgo

package ch347

import (
	"go.uber.org/zap"

	"camera-service/internal/eph"
)

type Opener struct{}

func NewOpener(Config, *zap.Logger) *Opener { return &Opener{} }

func (o *Opener) Open(string) (eph.Transport, error) { return nil, ErrUnsupported }

func (o *Opener) OpenControl(string, eph.Transport) (eph.ControlChannel, error) {
	return nil, ErrUnsupported
}
