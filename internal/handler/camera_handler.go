// internal/handler/camera_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camera-service/internal/service"
	"camera-service/internal/utils"
)

// CameraHandler handles camera control requests
type CameraHandler struct {
	cameraService *service.CameraService
	logger        *utils.ServiceLogger
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(cameraService *service.CameraService, logger *zap.Logger) *CameraHandler {
	return &CameraHandler{
		cameraService: cameraService,
		logger:        utils.NewServiceLogger(logger, "camera-handler"),
	}
}

// RegisterRoutes registers camera routes
func (h *CameraHandler) RegisterRoutes(router *gin.RouterGroup) {
	camera := router.Group("/camera")
	{
		camera.GET("", h.GetStatus)
		camera.POST("/refresh", h.Refresh)
		camera.POST("/snapshot", h.Snapshot)
		camera.POST("/power-off", h.PowerOff)
		camera.GET("/registers/:reg", h.GetRegister)
		camera.PUT("/registers/:reg", h.SetRegister)
	}
}

// respondError writes err with the status and protocol code it maps to
func respondError(c *gin.Context, logger *utils.ServiceLogger, message string, err error) {
	status := service.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err), zap.Int("status", status))
	} else {
		logger.Debug(message, zap.Error(err), zap.Int("status", status))
	}
	utils.ProtocolErrorResponse(c, status, message, service.ProtocolCode(err), err)
}

// GetStatus returns the camera status
// @Summary Camera status
// @Description Model, link, catalog and last error of the camera. Does not talk to the camera.
// @Tags Camera
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.CameraInfo} "Camera status"
// @Router /camera [get]
func (h *CameraHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Camera status retrieved", h.cameraService.Status(c.Request.Context()))
}

// Refresh rereads the catalog
// @Summary Refresh catalog
// @Description Reads count, size and creation time of every picture from the camera
// @Tags Camera
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Image} "Catalog refreshed"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /camera/refresh [post]
func (h *CameraHandler) Refresh(c *gin.Context) {
	images, err := h.cameraService.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to refresh catalog", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Catalog refreshed", images)
}

// Snapshot takes a picture
// @Summary Take a picture
// @Description Triggers the shutter, waits for the camera to store the picture and refreshes the catalog
// @Tags Camera
// @Produce json
// @Success 201 {object} utils.APIResponse{data=model.Image} "Picture taken"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /camera/snapshot [post]
func (h *CameraHandler) Snapshot(c *gin.Context) {
	img, err := h.cameraService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to take picture", err)
		return
	}
	h.logger.Info("Picture taken", zap.String("image", img.Name))
	utils.SuccessResponse(c, http.StatusCreated, "Picture taken", img)
}

// PowerOff switches the camera off
// @Summary Power off
// @Tags Camera
// @Produce json
// @Success 200 {object} utils.APIResponse "Camera powered off"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /camera/power-off [post]
func (h *CameraHandler) PowerOff(c *gin.Context) {
	if err := h.cameraService.PowerOff(c.Request.Context()); err != nil {
		respondError(c, h.logger, "Failed to power off camera", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Camera powered off", nil)
}

func registerParam(c *gin.Context) (int, bool) {
	reg, err := strconv.Atoi(c.Param("reg"))
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"reg": "must be an integer"})
		return 0, false
	}
	return reg, true
}

// GetRegister reads a register
// @Summary Read register
// @Description Reads a 32-bit camera register, for diagnostics
// @Tags Camera
// @Produce json
// @Param reg path int true "Register number (0-255)"
// @Success 200 {object} utils.APIResponse{data=model.RegisterValue} "Register value"
// @Failure 400 {object} utils.APIResponse "Invalid register"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /camera/registers/{reg} [get]
func (h *CameraHandler) GetRegister(c *gin.Context) {
	reg, ok := registerParam(c)
	if !ok {
		return
	}
	v, err := h.cameraService.GetRegister(c.Request.Context(), reg)
	if err != nil {
		respondError(c, h.logger, "Failed to read register", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Register read", v)
}

// SetRegisterRequest is the body of a register write
type SetRegisterRequest struct {
	Value *uint32 `json:"value" binding:"required"`
}

// SetRegister writes a register
// @Summary Write register
// @Description Writes a 32-bit camera register, for diagnostics
// @Tags Camera
// @Accept json
// @Produce json
// @Param reg path int true "Register number (0-255)"
// @Param request body SetRegisterRequest true "Value to write"
// @Success 200 {object} utils.APIResponse{data=model.RegisterValue} "Register written"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 503 {object} utils.APIResponse "Camera not responding"
// @Router /camera/registers/{reg} [put]
func (h *CameraHandler) SetRegister(c *gin.Context) {
	reg, ok := registerParam(c)
	if !ok {
		return
	}
	var req SetRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	v, err := h.cameraService.SetRegister(c.Request.Context(), reg, *req.Value)
	if err != nil {
		respondError(c, h.logger, "Failed to write register", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Register written", v)
}
