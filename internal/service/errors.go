// internal/service/errors.go
package service

import (
	"context"
	"errors"
	"net/http"

	"camera-service/internal/driver"
	"camera-service/internal/eph"
	"camera-service/internal/repository"
)

var (
	ErrImageNotFound     = errors.New("image not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrInvalidRegister   = errors.New("register must be between 0 and 255")
	ErrImageTooLarge     = errors.New("image exceeds the configured size limit")
	ErrSizeMismatch      = errors.New("fetched size differs from catalog size")
)

// HTTPStatus maps a service or engine error to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrImageNotFound),
		errors.Is(err, ErrDirectoryNotFound),
		errors.Is(err, ErrTransferNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRegister),
		errors.Is(err, eph.ErrInvalidArguments),
		errors.Is(err, eph.ErrBadSpeed),
		errors.Is(err, driver.ErrSpeedTooHigh):
		return http.StatusBadRequest
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusInsufficientStorage
	case errors.Is(err, ErrSizeMismatch):
		return http.StatusBadGateway
	case errors.Is(err, eph.ErrTimeout),
		errors.Is(err, eph.ErrExcessiveRetries),
		errors.Is(err, eph.ErrHandshakeFailed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ProtocolCode returns the numeric engine code carried by err, or zero.
func ProtocolCode(err error) int {
	return int(eph.CodeOf(err))
}
