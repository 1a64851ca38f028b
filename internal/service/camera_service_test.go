// internal/service/camera_service_test.go
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"camera-service/internal/config"
	"camera-service/internal/driver"
	"camera-service/internal/eph"
	"camera-service/internal/eph/simulator"
	"camera-service/internal/model"
	"camera-service/internal/repository"
	"camera-service/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *recorder) Publish(e *model.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t model.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t model.EventType) *model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType == t {
			return r.events[i]
		}
	}
	return nil
}

type fixture struct {
	svc       *CameraService
	sim       *simulator.Camera
	cfg       *config.CameraConfig
	images    repository.ImageRepository
	transfers repository.TransferRepository
	cache     *storage.Cache
	events    *recorder
}

var lastShot = time.Date(2001, 7, 14, 18, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, configure func(*config.CameraConfig), images ...simulator.Image) *fixture {
	t.Helper()
	return newProfileFixture(t, configure, nil, images...)
}

func newProfileFixture(t *testing.T, configure func(*config.CameraConfig), adjust func(*driver.Profile), images ...simulator.Image) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := &config.CameraConfig{
		Model:           "photopc",
		Transport:       "simulator",
		Device:          "sim0",
		PowerOffOnClose: true,
		Retries:         eph.MaxRetries,
		MaxImageSize:    1 << 20,
	}
	if configure != nil {
		configure(cfg)
	}

	registry := driver.NewRegistry(logger)
	driver.RegisterDefaultProfiles(registry)
	profile, err := registry.Lookup(cfg.Model)
	if err != nil {
		t.Fatal(err)
	}
	if adjust != nil {
		adjust(&profile)
	}
	cache, err := storage.NewCache(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		sim:       simulator.New(images...),
		cfg:       cfg,
		images:    repository.NewMemoryImageRepository(),
		transfers: repository.NewMemoryTransferRepository(),
		cache:     cache,
		events:    &recorder{},
	}
	f.svc = NewCameraService(cfg, profile, f.sim, f.images, f.transfers, cache, f.events, logger,
		WithLinkOptions(
			eph.WithSleep(func(time.Duration) {}),
			eph.WithWriteDelays(eph.WriteDelays{}),
		),
		WithClock(func() time.Time { return lastShot }),
	)
	return f
}

func TestListDirectoryReadsCatalog(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(3, lastShot)...)
	ctx := context.Background()

	dir, err := f.svc.ListDirectory(ctx, "pics")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	want := []string{"20010714_001.jpg", "20010714_002.jpg", "20010714_003.jpg"}
	if len(dir.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(dir.Entries), len(want))
	}
	for i, e := range dir.Entries {
		if e.Name != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Name, want[i])
		}
		if e.Mode != "-r--r--r--" || e.IsDir {
			t.Errorf("entry %s mode %s", e.Name, e.Mode)
		}
	}
	if !f.sim.PoweredOff() {
		t.Error("camera not powered off after the session")
	}
	if f.events.count(model.EventCatalogRefreshed) != 1 {
		t.Error("no catalog.refreshed event")
	}

	// the catalog is read once
	f.sim.ResetStats()
	if _, err := f.svc.ListDirectory(ctx, "/pics/"); err != nil {
		t.Fatal(err)
	}
	if f.sim.Stats().Opens != 0 {
		t.Error("second listing opened the link")
	}

	info := f.svc.Status(ctx)
	if info.ImageCount != 3 || info.Status != model.CameraStatusOff || info.Sessions != 1 {
		t.Errorf("status = %+v", info)
	}
}

func TestListRootAndEmptyDirectories(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	root := f.svc.ListRoot(ctx)
	if len(root.Entries) != 3 || root.Entries[0].Name != "pics" || root.Entries[0].Mode != "dr-xr-xr-x" {
		t.Errorf("root = %+v", root)
	}
	for _, name := range []string{"seqs", "clips"} {
		dir, err := f.svc.ListDirectory(ctx, name)
		if err != nil || len(dir.Entries) != 0 {
			t.Errorf("%s: %+v, %v", name, dir, err)
		}
	}
	_, err := f.svc.ListDirectory(ctx, "movies")
	if !errors.Is(err, ErrDirectoryNotFound) || HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("unknown directory err = %v", err)
	}
	if f.sim.Stats().Opens != 0 {
		t.Error("listing empty directories touched the camera")
	}
}

func TestOpenImageFetchesOnce(t *testing.T) {
	images := simulator.SampleImages(2, lastShot)
	f := newFixture(t, nil, images...)
	ctx := context.Background()

	img, file, err := f.svc.OpenImage(ctx, "20010714_002.jpg")
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	got, _ := io.ReadAll(file)
	file.Close()
	if !bytes.Equal(got, images[1].Data) {
		t.Fatalf("fetched %d bytes, want %d", len(got), len(images[1].Data))
	}
	if img.Digest == nil || *img.Digest != storage.Digest(images[1].Data) {
		t.Errorf("digest = %v", img.Digest)
	}
	if f.sim.Register(simulator.RegFrame) != 2 {
		t.Errorf("frame register = %d, want 2", f.sim.Register(simulator.RegFrame))
	}

	f.sim.ResetStats()
	_, file, err = f.svc.OpenImage(ctx, "pics/20010714_002.jpg")
	if err != nil {
		t.Fatal(err)
	}
	file.Close()
	if f.sim.Stats().Opens != 0 {
		t.Error("cached image was fetched again")
	}

	list, total, _ := f.svc.ListTransfers(ctx, &model.TransferFilter{})
	if total != 1 || list[0].Status != model.TransferStatusCompleted || list[0].Bytes != int64(len(images[1].Data)) {
		t.Errorf("transfers = %+v", list)
	}
	if list[0].Register != simulator.RegImage || list[0].Slot != 2 {
		t.Errorf("transfer register %d slot %d", list[0].Register, list[0].Slot)
	}

	progress := f.events.last(model.EventTransferProgress)
	if progress == nil || progress.Data["percent"] != float64(100) {
		t.Errorf("last progress event = %+v", progress)
	}
	if f.events.count(model.EventTransferStarted) != 1 || f.events.count(model.EventTransferCompleted) != 1 {
		t.Error("missing transfer lifecycle events")
	}
}

func TestOpenImageSizeMismatch(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(1, lastShot)...)
	ctx := context.Background()

	catalog, err := f.svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wrong := *catalog[0]
	wrong.Size++
	if err := f.images.ReplaceAll(ctx, []*model.Image{&wrong}); err != nil {
		t.Fatal(err)
	}

	_, _, err = f.svc.OpenImage(ctx, wrong.Name)
	if !errors.Is(err, ErrSizeMismatch) || HTTPStatus(err) != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
	if f.cache.Has(wrong.Name) {
		t.Error("mismatched image was cached")
	}
	list, _, _ := f.svc.ListTransfers(ctx, &model.TransferFilter{})
	if len(list) != 1 || list[0].Status != model.TransferStatusFailed || list[0].ErrorMessage == nil {
		t.Errorf("transfers = %+v", list)
	}
}

func TestOpenImageTooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.CameraConfig) { c.MaxImageSize = 100 }, simulator.SampleImages(1, lastShot)...)
	_, _, err := f.svc.OpenImage(context.Background(), "20010714_001.jpg")
	if !errors.Is(err, ErrImageTooLarge) || HTTPStatus(err) != http.StatusInsufficientStorage {
		t.Errorf("err = %v", err)
	}
}

func TestOpenImageNotFound(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(1, lastShot)...)
	_, _, err := f.svc.OpenImage(context.Background(), "19990101_001.jpg")
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestThumbnailCached(t *testing.T) {
	images := simulator.SampleImages(2, lastShot)
	f := newFixture(t, nil, images...)
	ctx := context.Background()

	thumb, err := f.svc.Thumbnail(ctx, "20010714_001.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(thumb, images[0].Thumbnail) {
		t.Error("thumbnail bytes differ")
	}
	f.sim.ResetStats()
	if _, err := f.svc.Thumbnail(ctx, "20010714_001.jpg"); err != nil {
		t.Fatal(err)
	}
	if f.sim.Stats().Opens != 0 {
		t.Error("cached thumbnail was fetched again")
	}
	stats, _ := f.svc.TransferStats(ctx)
	if stats.Completed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRefreshDropsStaleCache(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(1, lastShot)...)
	ctx := context.Background()

	stale := &model.Image{Name: "pics/19990101_001.jpg", Slot: 1, Size: 3, Mode: model.ModeImage}
	_ = f.images.ReplaceAll(ctx, []*model.Image{stale})
	digest, _ := f.cache.Put(stale.Name, []byte("old"))
	_ = f.images.MarkCached(ctx, stale.Name, digest, lastShot)

	if _, err := f.svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if f.cache.Has(stale.Name) {
		t.Error("blob of a vanished picture is still cached")
	}
}

func TestSnapshotAddsImage(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(2, lastShot)...)
	f.sim.SetClock(func() time.Time { return lastShot.Add(time.Hour) })
	ctx := context.Background()

	img, err := f.svc.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if img.Slot != 3 || img.Name != "pics/20010714_003.jpg" {
		t.Errorf("newest = %+v", img)
	}
	if f.svc.Status(ctx).ImageCount != 3 {
		t.Error("catalog not refreshed after snapshot")
	}
	if f.events.count(model.EventSnapshotTaken) != 1 {
		t.Error("no snapshot event")
	}
}

func TestRegisters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.SetRegister(ctx, 30, 7); err != nil {
		t.Fatal(err)
	}
	if f.sim.Register(30) != 7 {
		t.Errorf("camera register 30 = %d", f.sim.Register(30))
	}
	v, err := f.svc.GetRegister(ctx, 30)
	if err != nil || v.Value != 7 {
		t.Errorf("GetRegister = %+v, %v", v, err)
	}
	_, err = f.svc.GetRegister(ctx, 300)
	if !errors.Is(err, ErrInvalidRegister) || HTTPStatus(err) != http.StatusBadRequest {
		t.Errorf("invalid register err = %v", err)
	}
}

func TestSilentCameraFails(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(1, lastShot)...)
	f.sim.SetMute(true)
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx)
	if !errors.Is(err, eph.ErrHandshakeFailed) {
		t.Fatalf("err = %v", err)
	}
	if HTTPStatus(err) != http.StatusServiceUnavailable {
		t.Errorf("status = %d", HTTPStatus(err))
	}
	info := f.svc.Status(ctx)
	if info.Status != model.CameraStatusError || info.LastCode == nil || *info.LastCode != int(eph.CodeHandshakeFailed) {
		t.Errorf("status = %+v", info)
	}
	if f.events.count(model.EventCameraError) != 1 {
		t.Error("no camera.error event")
	}
	if f.sim.IsOpen() {
		t.Error("link left open")
	}
}

func TestPowerOff(t *testing.T) {
	f := newFixture(t, func(c *config.CameraConfig) { c.PowerOffOnClose = false })
	ctx := context.Background()

	if _, err := f.svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if f.sim.PoweredOff() || f.svc.Status(ctx).Status != model.CameraStatusIdle {
		t.Fatal("camera switched off although power_off_on_close is false")
	}
	if err := f.svc.PowerOff(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.sim.PoweredOff() || f.svc.Status(ctx).Status != model.CameraStatusOff {
		t.Error("camera still on")
	}
}

func TestPowerOffUsesProfileAction(t *testing.T) {
	f := newProfileFixture(t, nil, func(p *driver.Profile) {
		p.ActionPowerOff = 9
		p.PowerOffArg = []byte{1}
	})
	f.sim.SetPowerOffAction(9)
	ctx := context.Background()

	if err := f.svc.PowerOff(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.sim.PoweredOff() {
		t.Fatal("camera still on")
	}
	var seen bool
	for _, a := range f.sim.Actions() {
		if a.Reg == simulator.ActionPowerOff {
			t.Errorf("default power-off action sent: %+v", a)
		}
		if a.Reg == 9 && bytes.Equal(a.Arg, []byte{1}) {
			seen = true
		}
	}
	if !seen {
		t.Errorf("actions = %+v", f.sim.Actions())
	}
}

func TestSpeedAboveProfileMaximum(t *testing.T) {
	f := newProfileFixture(t, func(c *config.CameraConfig) { c.BaudRate = 115200 },
		func(p *driver.Profile) { p.MaxSpeed = 38400 })

	_, err := f.svc.Refresh(context.Background())
	if !errors.Is(err, driver.ErrSpeedTooHigh) || HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if f.sim.Stats().Opens != 0 {
		t.Error("link opened above the model maximum")
	}
}

func TestZeroSpeedSelectsProfileMaximum(t *testing.T) {
	f := newProfileFixture(t, func(c *config.CameraConfig) { c.BaudRate = 0 },
		func(p *driver.Profile) { p.MaxSpeed = 38400 })

	if _, err := f.svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if code := f.sim.SpeedCode(); code != 3 {
		t.Errorf("speed code = %d, want 3 (38400)", code)
	}
}

func TestCanceledContext(t *testing.T) {
	f := newFixture(t, nil, simulator.SampleImages(1, lastShot)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if f.sim.Stats().Opens != 0 {
		t.Error("canceled refresh opened the link")
	}
}
