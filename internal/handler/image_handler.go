// internal/handler/image_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camera-service/internal/service"
	"camera-service/internal/utils"
)

// ImageHandler serves the camera namespace and picture bytes
type ImageHandler struct {
	cameraService *service.CameraService
	logger        *utils.ServiceLogger
}

// NewImageHandler creates a new image handler
func NewImageHandler(cameraService *service.CameraService, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		cameraService: cameraService,
		logger:        utils.NewServiceLogger(logger, "image-handler"),
	}
}

// RegisterRoutes registers namespace and image routes
func (h *ImageHandler) RegisterRoutes(router *gin.RouterGroup) {
	fs := router.Group("/fs")
	{
		fs.GET("", h.ListRoot)
		fs.GET("/:dir", h.ListDirectory)
	}

	images := router.Group("/images")
	{
		images.GET("", h.ListImages)
		images.GET("/:name", h.GetImage)
		images.GET("/:name/content", h.GetContent)
		images.GET("/:name/thumbnail", h.GetThumbnail)
	}
}

// ListRoot lists the namespace root
// @Summary List root
// @Description Lists the pics, seqs and clips directories
// @Tags Files
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.Directory} "Root directory"
// @Router /fs [get]
func (h *ImageHandler) ListRoot(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Directory listed", h.cameraService.ListRoot(c.Request.Context()))
}

// ListDirectory lists one directory
// @Summary List directory
// @Description Lists a namespace directory. The first listing of pics reads the catalog from the camera.
// @Tags Files
// @Produce json
// @Param dir path string true "Directory" Enums(pics, seqs, clips)
// @Success 200 {object} utils.APIResponse{data=model.Directory} "Directory listing"
// @Failure 404 {object} utils.APIResponse "No such directory"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /fs/{dir} [get]
func (h *ImageHandler) ListDirectory(c *gin.Context) {
	dir, err := h.cameraService.ListDirectory(c.Request.Context(), c.Param("dir"))
	if err != nil {
		respondError(c, h.logger, "Failed to list directory", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Directory listed", dir)
}

// ListImages returns the catalog
// @Summary List images
// @Tags Images
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Image} "Catalog"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /images [get]
func (h *ImageHandler) ListImages(c *gin.Context) {
	images, err := h.cameraService.ListImages(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to list images", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Images retrieved", images)
}

// GetImage returns picture metadata
// @Summary Image metadata
// @Tags Images
// @Produce json
// @Param name path string true "Image name, e.g. 20010714_001.jpg"
// @Success 200 {object} utils.APIResponse{data=model.Image} "Image metadata"
// @Failure 404 {object} utils.APIResponse "No such image"
// @Router /images/{name} [get]
func (h *ImageHandler) GetImage(c *gin.Context) {
	img, err := h.cameraService.GetImage(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, "Failed to get image", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Image retrieved", img)
}

// GetContent serves picture bytes with Range support
// @Summary Image content
// @Description Returns the JPEG. The first read fetches it from the camera into the cache.
// @Tags Images
// @Produce image/jpeg
// @Param name path string true "Image name"
// @Param Range header string false "Byte range"
// @Success 200 {file} binary "Image bytes"
// @Success 206 {file} binary "Partial content"
// @Failure 404 {object} utils.APIResponse "No such image"
// @Failure 416 {object} utils.APIResponse "Range not satisfiable"
// @Failure 502 {object} utils.APIResponse "Camera sent a different size"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /images/{name}/content [get]
func (h *ImageHandler) GetContent(c *gin.Context) {
	img, file, err := h.cameraService.OpenImage(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, "Failed to read image", err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", "image/jpeg")
	if img.Digest != nil {
		c.Header("ETag", `"`+*img.Digest+`"`)
	}
	http.ServeContent(c.Writer, c.Request, img.BaseName(), img.CreatedAt, file)
}

// GetThumbnail serves the picture thumbnail
// @Summary Image thumbnail
// @Tags Images
// @Produce image/jpeg
// @Param name path string true "Image name"
// @Success 200 {file} binary "Thumbnail bytes"
// @Failure 404 {object} utils.APIResponse "No such image"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /images/{name}/thumbnail [get]
func (h *ImageHandler) GetThumbnail(c *gin.Context) {
	data, err := h.cameraService.Thumbnail(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, "Failed to read thumbnail", err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
