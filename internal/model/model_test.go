// internal/model/model_test.go
package model

import (
	"errors"
	"testing"
	"time"
)

func TestImageName(t *testing.T) {
	tests := []struct {
		created time.Time
		slot    int
		want    string
	}{
		{time.Date(1998, 3, 7, 23, 59, 0, 0, time.UTC), 1, "pics/19980307_001.jpg"},
		{time.Date(2026, 10, 16, 1, 0, 0, 0, time.FixedZone("CEST", 2*3600)), 42, "pics/20261015_042.jpg"},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 1234, "pics/20000101_1234.jpg"},
	}
	for _, tt := range tests {
		if got := ImageName(tt.created, tt.slot); got != tt.want {
			t.Errorf("ImageName(%v, %d) = %s, want %s", tt.created, tt.slot, got, tt.want)
		}
	}
	img := Image{Name: "pics/19980307_001.jpg"}
	if img.BaseName() != "19980307_001.jpg" {
		t.Errorf("BaseName = %s", img.BaseName())
	}
}

func TestFormatMode(t *testing.T) {
	if got := FormatMode(ModeImage, false); got != "-r--r--r--" {
		t.Errorf("image mode = %s", got)
	}
	if got := FormatMode(ModeDirectory, true); got != "dr-xr-xr-x" {
		t.Errorf("dir mode = %s", got)
	}
}

func TestTransferRate(t *testing.T) {
	if got := TransferRate(11520, time.Second); got.String() != "11520" {
		t.Errorf("rate = %s", got)
	}
	if got := TransferRate(1000, 3*time.Second); got.String() != "333.33" {
		t.Errorf("rate = %s", got)
	}
	if !TransferRate(1000, 0).IsZero() {
		t.Error("zero duration gave a rate")
	}
}

func TestTransferLifecycle(t *testing.T) {
	tr := NewTransfer(TransferKindImage, "pics/19980307_001.jpg", 14, 1, 4096)
	if tr.Status != TransferStatusPending || tr.ID.String() == "" {
		t.Fatalf("new transfer = %+v", tr)
	}
	tr.Complete(4096, tr.StartedAt.Add(2*time.Second))
	if tr.Status != TransferStatusCompleted || *tr.DurationMs != 2000 || tr.Rate.String() != "2048" {
		t.Errorf("completed = %+v rate %s", tr, tr.Rate)
	}

	tr = NewTransfer(TransferKindThumbnail, "pics/19980307_001.jpg", 15, 1, 0)
	tr.Fail(10, tr.StartedAt.Add(time.Second), 10002, errors.New("timeout"))
	if tr.Status != TransferStatusFailed || *tr.ErrorCode != 10002 || *tr.ErrorMessage != "timeout" {
		t.Errorf("failed = %+v", tr)
	}
}
