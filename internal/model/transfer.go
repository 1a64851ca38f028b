// internal/model/transfer.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the status of a transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusRunning   TransferStatus = "RUNNING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// TransferKind tells what was read
type TransferKind string

const (
	TransferKindImage     TransferKind = "IMAGE"
	TransferKindThumbnail TransferKind = "THUMBNAIL"
)

// Transfer records one variable read from the camera
type Transfer struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Kind         TransferKind    `json:"kind" db:"kind"`
	ImageName    string          `json:"image_name" db:"image_name"`
	Register     int             `json:"register" db:"register"`
	Slot         int             `json:"slot" db:"slot"`
	Status       TransferStatus  `json:"status" db:"status"`
	Expected     int64           `json:"expected_bytes" db:"expected_bytes"`
	Bytes        int64           `json:"bytes" db:"bytes"`
	StartedAt    time.Time       `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	DurationMs   *int64          `json:"duration_ms,omitempty" db:"duration_ms"`
	Rate         decimal.Decimal `json:"bytes_per_second" db:"bytes_per_second"`
	ErrorCode    *int            `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
}

// NewTransfer starts a transfer record
func NewTransfer(kind TransferKind, image string, register, slot int, expected int64) *Transfer {
	return &Transfer{
		ID:        uuid.New(),
		Kind:      kind,
		ImageName: image,
		Register:  register,
		Slot:      slot,
		Status:    TransferStatusPending,
		Expected:  expected,
		StartedAt: time.Now().UTC(),
		Rate:      decimal.Zero,
	}
}

// Complete marks the transfer done and computes its rate
func (t *Transfer) Complete(bytes int64, at time.Time) {
	t.finish(bytes, at)
	t.Status = TransferStatusCompleted
}

// Fail marks the transfer failed
func (t *Transfer) Fail(bytes int64, at time.Time, code int, err error) {
	t.finish(bytes, at)
	t.Status = TransferStatusFailed
	if code != 0 {
		t.ErrorCode = &code
	}
	msg := err.Error()
	t.ErrorMessage = &msg
}

func (t *Transfer) finish(bytes int64, at time.Time) {
	t.Bytes = bytes
	t.CompletedAt = &at
	d := at.Sub(t.StartedAt)
	ms := d.Milliseconds()
	t.DurationMs = &ms
	t.Rate = TransferRate(bytes, d)
}

// TransferRate returns bytes per second rounded to two places. A zero
// duration yields zero.
func TransferRate(bytes int64, d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(bytes).
		Mul(decimal.NewFromInt(int64(time.Second))).
		Div(decimal.NewFromInt(int64(d))).
		Round(2)
}

// TransferFilter narrows a transfer listing
type TransferFilter struct {
	Status    *TransferStatus `json:"status,omitempty"`
	ImageName string          `json:"image_name,omitempty"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}
