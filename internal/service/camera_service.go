// internal/service/camera_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"camera-service/internal/config"
	"camera-service/internal/driver"
	"camera-service/internal/eph"
	"camera-service/internal/model"
	"camera-service/internal/protocol"
	"camera-service/internal/repository"
	"camera-service/internal/storage"
	"camera-service/internal/utils"
)

// progressStep is the minimum number of bytes between progress events.
const progressStep = 32 * 1024

const thumbnailDir = "thumbs"

// EventPublisher receives camera events
type EventPublisher interface {
	Publish(event *model.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*model.Event) {}

type linkStatsSource interface {
	Stats() protocol.LinkStats
}

// CameraService handles camera business logic. Every operation that talks
// to the camera runs inside one link session: open, probe, operate, close.
type CameraService struct {
	cfg       *config.CameraConfig
	profile   driver.Profile
	opener    eph.Opener
	images    repository.ImageRepository
	transfers repository.TransferRepository
	cache     *storage.Cache
	events    EventPublisher
	logger    *utils.ServiceLogger
	camLogger *utils.CameraLogger
	linkOpts  []eph.Option
	now       func() time.Time

	// session serializes access to the camera
	session sync.Mutex

	mu          sync.RWMutex
	status      model.CameraStatus
	lastRefresh *time.Time
	lastSession *time.Time
	lastErr     *string
	lastCode    *int
	sessions    int64
	imageCount  int
}

// Option configures a CameraService
type Option func(*CameraService)

// WithLinkOptions appends engine options to every session.
func WithLinkOptions(opts ...eph.Option) Option {
	return func(s *CameraService) { s.linkOpts = append(s.linkOpts, opts...) }
}

// WithClock replaces the time source for catalog timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CameraService) { s.now = now }
}

// NewCameraService creates a new camera service instance
func NewCameraService(
	cfg *config.CameraConfig,
	profile driver.Profile,
	opener eph.Opener,
	images repository.ImageRepository,
	transfers repository.TransferRepository,
	cache *storage.Cache,
	events EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *CameraService {
	if events == nil {
		events = nopPublisher{}
	}
	s := &CameraService{
		cfg:       cfg,
		profile:   profile,
		opener:    opener,
		images:    images,
		transfers: transfers,
		cache:     cache,
		events:    events,
		logger:    utils.NewServiceLogger(logger, "camera-service"),
		camLogger: utils.NewCameraLogger(logger, cfg.Device, profile.Model, cfg.Transport),
		now:       time.Now,
		status:    model.CameraStatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the camera model profile in use
func (s *CameraService) Profile() driver.Profile { return s.profile }

// run opens a session, probes the camera, runs fn and closes the link.
// The caller holds s.session.
func (s *CameraService) run(ctx context.Context, op string, powerOff bool, fn func(cam *driver.Camera, conn *eph.Connection) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	speed, err := s.profile.LinkSpeed(s.cfg.BaudRate)
	if err != nil {
		return err
	}
	start := time.Now()
	s.setStatus(model.CameraStatusConnecting)
	defer func() {
		s.camLogger.LogSession(op, time.Since(start), err)
		s.finishSession(op, powerOff, err)
	}()

	opts := append([]eph.Option{
		eph.WithLogger(s.camLogger.Logger),
		eph.WithDebug(s.cfg.Debug),
		eph.WithRetries(s.cfg.Retries),
		eph.WithPowerOff(s.profile.ActionPowerOff, s.profile.PowerOffArg, s.profile.PowerOffWaits),
		eph.WithErrorFunc(func(code eph.Code, msg string) {
			s.camLogger.LogProtocolError(int(code), msg)
		}),
	}, s.linkOpts...)
	conn := eph.New(s.opener, opts...)
	if err := conn.Open(s.cfg.Device, speed); err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Device, err)
	}
	s.publish(model.EventCameraConnected, model.SeverityInfo, model.JSONObject{
		"device":    s.cfg.Device,
		"speed":     conn.Speed(),
		"operation": op,
	})

	cam := driver.NewCamera(conn, s.profile)
	cam.SetClock(s.now)
	if _, err := cam.Probe(); err != nil {
		// a camera that does not answer the probe is switched off
		if cerr := conn.Close(true); cerr != nil {
			s.camLogger.Warn("Close after failed probe", zap.Error(cerr))
		}
		return err
	}

	s.setStatus(model.CameraStatusBusy)
	opErr := fn(cam, conn)
	if cerr := conn.Close(powerOff); cerr != nil {
		s.camLogger.Warn("Close failed", zap.String("operation", op), zap.Error(cerr))
	}
	s.publish(model.EventCameraDisconnected, model.SeverityInfo, model.JSONObject{
		"device":    s.cfg.Device,
		"power_off": powerOff,
	})
	return opErr
}

func (s *CameraService) finishSession(op string, powerOff bool, err error) {
	now := s.now().UTC()
	s.mu.Lock()
	s.sessions++
	s.lastSession = &now
	switch {
	case err != nil:
		msg := err.Error()
		s.status = model.CameraStatusError
		s.lastErr = &msg
		s.lastCode = nil
		if code := ProtocolCode(err); code != 0 {
			s.lastCode = &code
		}
	case powerOff:
		s.status = model.CameraStatusOff
	default:
		s.status = model.CameraStatusIdle
	}
	s.mu.Unlock()

	if err != nil {
		s.publish(model.EventCameraError, model.SeverityError, model.JSONObject{
			"operation": op,
			"error":     err.Error(),
			"code":      ProtocolCode(err),
		})
	}
}

func (s *CameraService) setStatus(status model.CameraStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *CameraService) publish(eventType model.EventType, severity string, data model.JSONObject) {
	s.events.Publish(model.NewEvent(eventType, severity, data))
}

// Refresh rereads the whole catalog from the camera
func (s *CameraService) Refresh(ctx context.Context) ([]*model.Image, error) {
	s.session.Lock()
	defer s.session.Unlock()
	return s.refreshLocked(ctx)
}

func (s *CameraService) refreshLocked(ctx context.Context) ([]*model.Image, error) {
	var images []*model.Image
	err := s.run(ctx, "refresh", s.cfg.PowerOffOnClose, func(cam *driver.Camera, _ *eph.Connection) error {
		var err error
		images, err = s.readCatalog(ctx, cam)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}
	return s.storeCatalog(ctx, images)
}

func (s *CameraService) readCatalog(ctx context.Context, cam *driver.Camera) ([]*model.Image, error) {
	count, err := cam.Count()
	if err != nil {
		return nil, err
	}
	cataloged := s.now().UTC()
	images := make([]*model.Image, 0, count)
	for slot := 1; slot <= count; slot++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := cam.Describe(slot)
		if err != nil {
			return nil, err
		}
		images = append(images, &model.Image{
			Name:        model.ImageName(info.Created, slot),
			Slot:        slot,
			Size:        info.Size,
			Mode:        model.ModeImage,
			CreatedAt:   info.Created,
			CatalogedAt: cataloged,
		})
	}
	return images, nil
}

// storeCatalog replaces the stored catalog and drops cached blobs of
// pictures that are gone or changed.
func (s *CameraService) storeCatalog(ctx context.Context, images []*model.Image) ([]*model.Image, error) {
	old, err := s.images.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.images.ReplaceAll(ctx, images); err != nil {
		return nil, fmt.Errorf("store catalog: %w", err)
	}

	current := make(map[string]int64, len(images))
	for _, img := range images {
		current[img.Name] = img.Size
	}
	for _, img := range old {
		if size, ok := current[img.Name]; ok && size == img.Size {
			continue
		}
		for _, name := range []string{img.Name, thumbnailName(img)} {
			if err := s.cache.Remove(name); err != nil {
				s.logger.Warn("Failed to drop stale cache entry", zap.String("name", name), zap.Error(err))
			}
		}
	}

	stored, err := s.images.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	s.mu.Lock()
	s.lastRefresh = &now
	s.imageCount = len(stored)
	s.mu.Unlock()

	s.logger.Info("Catalog refreshed", zap.Int("images", len(stored)))
	s.publish(model.EventCatalogRefreshed, model.SeverityInfo, model.JSONObject{"count": len(stored)})
	return stored, nil
}

// ensureCatalog reads the catalog once per process. The caller holds
// s.session.
func (s *CameraService) ensureCatalog(ctx context.Context) error {
	s.mu.RLock()
	refreshed := s.lastRefresh != nil
	s.mu.RUnlock()
	if refreshed {
		return nil
	}
	_, err := s.refreshLocked(ctx)
	return err
}

// ListImages returns the catalog, reading it from the camera on first use
func (s *CameraService) ListImages(ctx context.Context) ([]*model.Image, error) {
	s.session.Lock()
	defer s.session.Unlock()
	if err := s.ensureCatalog(ctx); err != nil {
		return nil, err
	}
	return s.images.List(ctx)
}

// ListRoot lists the namespace root
func (s *CameraService) ListRoot(ctx context.Context) *model.Directory {
	s.mu.RLock()
	var modTime time.Time
	if s.lastRefresh != nil {
		modTime = *s.lastRefresh
	}
	s.mu.RUnlock()

	dir := &model.Directory{
		Name:    "/",
		Mode:    model.FormatMode(model.ModeDirectory, true),
		Entries: make([]model.DirEntry, 0, len(model.Directories)),
	}
	for _, name := range model.Directories {
		dir.Entries = append(dir.Entries, model.DirEntry{
			Name:    name,
			IsDir:   true,
			Mode:    model.FormatMode(model.ModeDirectory, true),
			ModTime: modTime,
		})
	}
	return dir
}

// ListDirectory lists one namespace directory. Only pics has entries.
func (s *CameraService) ListDirectory(ctx context.Context, name string) (*model.Directory, error) {
	name = strings.Trim(name, "/")
	dir := &model.Directory{
		Name:    name,
		Mode:    model.FormatMode(model.ModeDirectory, true),
		Entries: []model.DirEntry{},
	}
	switch name {
	case model.DirSequences, model.DirClips:
		return dir, nil
	case model.DirPictures:
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrDirectoryNotFound)
	}

	images, err := s.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		dir.Entries = append(dir.Entries, model.DirEntry{
			Name:    img.BaseName(),
			Mode:    model.FormatMode(img.Mode, false),
			Size:    img.Size,
			ModTime: img.CreatedAt,
		})
	}
	return dir, nil
}

// imagePath accepts both "pics/x.jpg" and "x.jpg".
func imagePath(name string) string {
	name = strings.TrimPrefix(name, "/")
	if !strings.HasPrefix(name, model.DirPictures+"/") {
		name = model.DirPictures + "/" + name
	}
	return name
}

func thumbnailName(img *model.Image) string {
	return thumbnailDir + "/" + img.BaseName()
}

func (s *CameraService) lookup(ctx context.Context, name string) (*model.Image, error) {
	if err := s.ensureCatalog(ctx); err != nil {
		return nil, err
	}
	img, err := s.images.GetByName(ctx, imagePath(name))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrImageNotFound)
	}
	return img, err
}

// GetImage returns catalog metadata of one picture
func (s *CameraService) GetImage(ctx context.Context, name string) (*model.Image, error) {
	s.session.Lock()
	defer s.session.Unlock()
	return s.lookup(ctx, name)
}

// OpenImage returns the picture bytes, fetching them from the camera into
// the cache on first read. The caller closes the file.
func (s *CameraService) OpenImage(ctx context.Context, name string) (*model.Image, *os.File, error) {
	s.session.Lock()
	defer s.session.Unlock()

	img, err := s.lookup(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if img.IsCached() {
		f, _, err := s.cache.Open(img.Name)
		if err == nil {
			return img, f, nil
		}
		if !errors.Is(err, storage.ErrNotCached) {
			return nil, nil, err
		}
		s.logger.Warn("Cached image missing on disk, fetching again", zap.String("name", img.Name))
	}

	if err := s.fetchLocked(ctx, img); err != nil {
		return nil, nil, err
	}
	f, _, err := s.cache.Open(img.Name)
	if err != nil {
		return nil, nil, err
	}
	return img, f, nil
}

func (s *CameraService) fetchLocked(ctx context.Context, img *model.Image) error {
	limit := int64(s.cfg.MaxImageSize)
	if limit > 0 && img.Size > limit {
		return fmt.Errorf("%s is %d bytes: %w", img.Name, img.Size, ErrImageTooLarge)
	}

	t := model.NewTransfer(model.TransferKindImage, img.Name, s.profile.RegImage, img.Slot, img.Size)
	tl := s.beginTransfer(ctx, t)

	w, err := s.cache.Create(img.Name)
	if err != nil {
		s.endTransfer(ctx, t, tl, 0, err)
		return err
	}

	var n int64
	err = s.run(ctx, "fetch", s.cfg.PowerOffOnClose, func(cam *driver.Camera, conn *eph.Connection) error {
		conn.SetProgressFunc(s.progressFunc(t, tl))
		defer conn.SetProgressFunc(nil)
		var ferr error
		n, ferr = cam.Fetch(img.Slot, func(chunk []byte) error {
			if limit > 0 && w.Size()+int64(len(chunk)) > limit {
				return ErrImageTooLarge
			}
			return w.Store(chunk)
		})
		return ferr
	})
	if err == nil && n != img.Size {
		err = fmt.Errorf("%s: read %d bytes, catalog has %d: %w", img.Name, n, img.Size, ErrSizeMismatch)
	}
	if err != nil {
		w.Abort()
		s.endTransfer(ctx, t, tl, n, err)
		return fmt.Errorf("fetch %s: %w", img.Name, err)
	}

	digest, err := w.Commit()
	if err != nil {
		s.endTransfer(ctx, t, tl, n, err)
		return err
	}
	cachedAt := s.now().UTC()
	if err := s.images.MarkCached(ctx, img.Name, digest, cachedAt); err != nil {
		s.endTransfer(ctx, t, tl, n, err)
		return err
	}
	img.Digest = &digest
	img.CachedAt = &cachedAt
	s.endTransfer(ctx, t, tl, n, nil)
	return nil
}

// Thumbnail returns the thumbnail of a picture, cached after the first read
func (s *CameraService) Thumbnail(ctx context.Context, name string) ([]byte, error) {
	s.session.Lock()
	defer s.session.Unlock()

	img, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	key := thumbnailName(img)
	if data, err := s.cache.ReadFile(key); err == nil {
		return data, nil
	} else if !errors.Is(err, storage.ErrNotCached) {
		return nil, err
	}

	t := model.NewTransfer(model.TransferKindThumbnail, img.Name, s.profile.RegThumbnail, img.Slot, 0)
	tl := s.beginTransfer(ctx, t)
	var data []byte
	err = s.run(ctx, "thumbnail", s.cfg.PowerOffOnClose, func(cam *driver.Camera, conn *eph.Connection) error {
		conn.SetProgressFunc(s.progressFunc(t, tl))
		defer conn.SetProgressFunc(nil)
		var terr error
		data, terr = cam.Thumbnail(img.Slot)
		return terr
	})
	if err != nil {
		s.endTransfer(ctx, t, tl, int64(len(data)), err)
		return nil, fmt.Errorf("thumbnail %s: %w", img.Name, err)
	}
	if _, err := s.cache.Put(key, data); err != nil {
		s.logger.Warn("Failed to cache thumbnail", zap.String("name", key), zap.Error(err))
	}
	s.endTransfer(ctx, t, tl, int64(len(data)), nil)
	return data, nil
}

func (s *CameraService) beginTransfer(ctx context.Context, t *model.Transfer) *utils.TransferLogger {
	tl := utils.NewTransferLogger(s.logger.Logger, t.ID.String(), t.Register, t.Slot)
	t.Status = model.TransferStatusRunning
	if err := s.transfers.Create(ctx, t); err != nil {
		s.logger.Error("Failed to record transfer", zap.Error(err))
	}
	tl.Start(zap.String("image", t.ImageName), zap.Int64("expected", t.Expected))
	s.publish(model.EventTransferStarted, model.SeverityInfo, model.ToJSONObject(t))
	return tl
}

func (s *CameraService) endTransfer(ctx context.Context, t *model.Transfer, tl *utils.TransferLogger, n int64, err error) {
	at := time.Now().UTC()
	if err != nil {
		t.Fail(n, at, ProtocolCode(err), err)
		tl.Error(err, zap.Int64("bytes", n))
		s.publish(model.EventTransferFailed, model.SeverityError, model.ToJSONObject(t))
	} else {
		t.Complete(n, at)
		tl.Success(n, zap.String("rate", t.Rate.String()))
		s.publish(model.EventTransferCompleted, model.SeverityInfo, model.ToJSONObject(t))
	}
	// the request context may be gone by now; the record still has to land
	if uerr := s.transfers.Update(context.WithoutCancel(ctx), t); uerr != nil {
		s.logger.Error("Failed to update transfer", zap.Error(uerr))
	}
}

func (s *CameraService) progressFunc(t *model.Transfer, tl *utils.TransferLogger) eph.ProgressFunc {
	var last int64
	return func(n int64) {
		if n-last < progressStep && (t.Expected == 0 || n < t.Expected) {
			return
		}
		last = n
		tl.Progress(n, t.Expected)
		data := model.TransferProgressData{
			TransferID: t.ID,
			ImageName:  t.ImageName,
			Bytes:      n,
			Total:      t.Expected,
		}
		if t.Expected > 0 {
			data.Percent = decimal.NewFromInt(n).Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(t.Expected)).Round(1).InexactFloat64()
		}
		s.publish(model.EventTransferProgress, model.SeverityInfo, model.ToJSONObject(data))
	}
}

// Snapshot takes a picture and refreshes the catalog in the same session.
// It returns the newest picture.
func (s *CameraService) Snapshot(ctx context.Context) (*model.Image, error) {
	s.session.Lock()
	defer s.session.Unlock()

	var images []*model.Image
	err := s.run(ctx, "snapshot", s.cfg.PowerOffOnClose, func(cam *driver.Camera, _ *eph.Connection) error {
		if err := cam.Snapshot(); err != nil {
			return err
		}
		var err error
		images, err = s.readCatalog(ctx, cam)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	stored, err := s.storeCatalog(ctx, images)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("snapshot: camera reports no pictures: %w", ErrImageNotFound)
	}
	newest := stored[len(stored)-1]
	s.publish(model.EventSnapshotTaken, model.SeverityInfo, model.ToJSONObject(newest))
	return newest, nil
}

// PowerOff switches the camera off
func (s *CameraService) PowerOff(ctx context.Context) error {
	s.session.Lock()
	defer s.session.Unlock()
	return s.run(ctx, "power_off", true, func(_ *driver.Camera, conn *eph.Connection) error {
		return conn.Close(true)
	})
}

func checkRegister(reg int) error {
	if reg < 0 || reg > 0xff {
		return fmt.Errorf("register %d: %w", reg, ErrInvalidRegister)
	}
	return nil
}

// GetRegister reads one register, for diagnostics
func (s *CameraService) GetRegister(ctx context.Context, reg int) (*model.RegisterValue, error) {
	if err := checkRegister(reg); err != nil {
		return nil, err
	}
	s.session.Lock()
	defer s.session.Unlock()

	var v uint32
	err := s.run(ctx, "get_register", s.cfg.PowerOffOnClose, func(cam *driver.Camera, _ *eph.Connection) error {
		var err error
		v, err = cam.Register(reg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read register %d: %w", reg, err)
	}
	return &model.RegisterValue{Register: reg, Value: v}, nil
}

// SetRegister writes one register, for diagnostics
func (s *CameraService) SetRegister(ctx context.Context, reg int, value uint32) (*model.RegisterValue, error) {
	if err := checkRegister(reg); err != nil {
		return nil, err
	}
	s.session.Lock()
	defer s.session.Unlock()

	err := s.run(ctx, "set_register", s.cfg.PowerOffOnClose, func(cam *driver.Camera, _ *eph.Connection) error {
		return cam.SetRegister(reg, value)
	})
	if err != nil {
		return nil, fmt.Errorf("write register %d: %w", reg, err)
	}
	s.logger.Info("Register written", zap.Int("register", reg), zap.Uint32("value", value))
	return &model.RegisterValue{Register: reg, Value: value}, nil
}

// Status reports the camera and link state without touching the camera
func (s *CameraService) Status(_ context.Context) *model.CameraInfo {
	s.mu.RLock()
	info := &model.CameraInfo{
		Model:       s.profile.Model,
		Vendor:      s.profile.Vendor,
		Device:      s.cfg.Device,
		Transport:   s.cfg.Transport,
		BaudRate:    s.cfg.BaudRate,
		Status:      s.status,
		ImageCount:  s.imageCount,
		LastRefresh: s.lastRefresh,
		LastSession: s.lastSession,
		LastError:   s.lastErr,
		LastCode:    s.lastCode,
		Sessions:    s.sessions,
	}
	s.mu.RUnlock()

	if src, ok := s.opener.(linkStatsSource); ok {
		info.Link = src.Stats()
	}
	return info
}

// Busy reports whether a session is running
func (s *CameraService) Busy() bool {
	if s.session.TryLock() {
		s.session.Unlock()
		return false
	}
	return true
}

// ListTransfers returns the transfer log
func (s *CameraService) ListTransfers(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, int, error) {
	return s.transfers.List(ctx, filter)
}

// GetTransfer returns one transfer record
func (s *CameraService) GetTransfer(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrTransferNotFound)
	}
	return t, err
}

// TransferStats summarises the transfer log
func (s *CameraService) TransferStats(ctx context.Context) (*repository.TransferStats, error) {
	return s.transfers.GetStats(ctx)
}

// CleanupTransfers deletes finished transfers older than retention
func (s *CameraService) CleanupTransfers(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.transfers.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Old transfers removed", zap.Int64("count", n), zap.Duration("retention", retention))
	}
	return n, nil
}
