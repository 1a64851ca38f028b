// internal/driver/camera_test.go
package driver

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"camera-service/internal/eph"
	"camera-service/internal/eph/simulator"
)

func openSim(t *testing.T, images ...simulator.Image) (*Camera, *simulator.Camera) {
	t.Helper()
	sim := simulator.New(images...)
	conn := eph.New(sim,
		eph.WithLogger(zaptest.NewLogger(t)),
		eph.WithSleep(func(time.Duration) {}),
		eph.WithWriteDelays(eph.WriteDelays{}),
	)
	if err := conn.Open("sim", 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close(false) })

	reg := NewRegistry(zaptest.NewLogger(t))
	RegisterDefaultProfiles(reg)
	p, err := reg.Lookup("photopc")
	if err != nil {
		t.Fatal(err)
	}
	return NewCamera(conn, p), sim
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	RegisterDefaultProfiles(reg)

	list := reg.List()
	if len(list) != 3 || list[0].Model != "olympus-d600l" {
		t.Errorf("List = %+v", list)
	}
	p, err := reg.Lookup(" PhotoPC ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.RegImage != 14 || p.RegThumbnail != 15 || p.RegMetadata != 47 || !p.PowerOffWaits {
		t.Errorf("profile = %+v", p)
	}
	if reg.IsSupported("kodak-dc40") {
		t.Error("unknown model supported")
	}
}

func TestDescribe(t *testing.T) {
	created := time.Date(2001, 7, 14, 9, 30, 0, 0, time.UTC)
	cam, _ := openSim(t, simulator.SampleImage(1, created), simulator.SampleImage(2, time.Time{}))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cam.SetClock(func() time.Time { return now })

	n, err := cam.Count()
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	info, err := cam.Describe(1)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Created.Equal(created) || info.Slot != 1 || info.Size == 0 {
		t.Errorf("slot 1 = %+v", info)
	}

	info, err = cam.Describe(2)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Created.Equal(now) {
		t.Errorf("unknown time resolved to %v, want %v", info.Created, now)
	}

	if _, err := cam.Describe(0); err == nil {
		t.Error("slot 0 accepted")
	}
}

func TestFetchAndThumbnail(t *testing.T) {
	img := simulator.SampleImage(1, time.Now())
	cam, sim := openSim(t, img)

	var got bytes.Buffer
	n, err := cam.Fetch(1, func(p []byte) error {
		got.Write(p)
		return nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len(img.Data)) || !bytes.Equal(got.Bytes(), img.Data) {
		t.Errorf("fetched %d bytes, want %d", n, len(img.Data))
	}
	if sim.Register(simulator.RegFrame) != 1 {
		t.Error("slot not selected")
	}

	thumb, err := cam.Thumbnail(1)
	if err != nil || !bytes.Equal(thumb, img.Thumbnail) {
		t.Errorf("thumbnail %d bytes, %v", len(thumb), err)
	}
}

func TestSnapshotAddsImage(t *testing.T) {
	cam, sim := openSim(t)
	if err := cam.Snapshot(); err != nil {
		t.Fatal(err)
	}
	if sim.ImageCount() != 1 {
		t.Errorf("images = %d", sim.ImageCount())
	}
	n, _ := cam.Count()
	if n != 1 {
		t.Errorf("Count = %d", n)
	}
}

func TestLinkSpeed(t *testing.T) {
	p := photoPC("test", "Test", "")
	p.MaxSpeed = 57600

	tests := []struct {
		baud    int
		want    int
		wantErr bool
	}{
		{0, 57600, false},
		{19200, 19200, false},
		{57600, 57600, false},
		{115200, 0, true},
	}
	for _, tt := range tests {
		got, err := p.LinkSpeed(tt.baud)
		if tt.wantErr {
			if !errors.Is(err, ErrSpeedTooHigh) {
				t.Errorf("LinkSpeed(%d) err = %v", tt.baud, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("LinkSpeed(%d) = %d, %v; want %d", tt.baud, got, err, tt.want)
		}
	}

	p.MaxSpeed = 0
	if got, err := p.LinkSpeed(0); err != nil || got != 0 {
		t.Errorf("no ceiling: LinkSpeed(0) = %d, %v", got, err)
	}
}
