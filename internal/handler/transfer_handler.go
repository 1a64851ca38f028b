// internal/handler/transfer_handler.go
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"camera-service/internal/model"
	"camera-service/internal/service"
	"camera-service/internal/utils"
)

// TransferHandler exposes the transfer log
type TransferHandler struct {
	cameraService *service.CameraService
	logger        *utils.ServiceLogger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(cameraService *service.CameraService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		cameraService: cameraService,
		logger:        utils.NewServiceLogger(logger, "transfer-handler"),
	}
}

// RegisterRoutes registers transfer routes
func (h *TransferHandler) RegisterRoutes(router *gin.RouterGroup) {
	transfers := router.Group("/transfers")
	{
		transfers.GET("", h.ListTransfers)
		transfers.GET("/stats", h.GetStats)
		transfers.GET("/:id", h.GetTransfer)
	}
}

// TransferPage is one page of the transfer log
type TransferPage struct {
	Transfers []*model.Transfer `json:"transfers"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// ListTransfers lists transfers, newest first
// @Summary List transfers
// @Tags Transfers
// @Produce json
// @Param status query string false "Filter by status" Enums(PENDING, RUNNING, COMPLETED, FAILED)
// @Param image query string false "Filter by image name"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} utils.APIResponse{data=TransferPage} "Transfers"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /transfers [get]
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	filter := &model.TransferFilter{Limit: 50}
	errs := map[string]string{}

	if status := c.Query("status"); status != "" {
		s := model.TransferStatus(strings.ToUpper(status))
		switch s {
		case model.TransferStatusPending, model.TransferStatusRunning,
			model.TransferStatusCompleted, model.TransferStatusFailed:
			filter.Status = &s
		default:
			errs["status"] = "must be one of PENDING, RUNNING, COMPLETED, FAILED"
		}
	}
	if image := c.Query("image"); image != "" {
		if !strings.Contains(image, "/") {
			image = model.DirPictures + "/" + image
		}
		filter.ImageName = image
	}
	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 && l <= 500 {
			filter.Limit = l
		} else {
			errs["limit"] = "must be between 1 and 500"
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		} else {
			errs["offset"] = "must not be negative"
		}
	}
	if len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	transfers, total, err := h.cameraService.ListTransfers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "Failed to list transfers", err)
		return
	}
	if transfers == nil {
		transfers = []*model.Transfer{}
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfers retrieved", TransferPage{
		Transfers: transfers,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
}

// GetTransfer returns one transfer
// @Summary Get transfer
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} utils.APIResponse{data=model.Transfer} "Transfer"
// @Failure 400 {object} utils.APIResponse "Invalid ID"
// @Failure 404 {object} utils.APIResponse "No such transfer"
// @Router /transfers/{id} [get]
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transfer ID", err)
		return
	}
	t, err := h.cameraService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get transfer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfer retrieved", t)
}

// GetStats summarises the transfer log
// @Summary Transfer statistics
// @Tags Transfers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=repository.TransferStats} "Statistics"
// @Router /transfers/stats [get]
func (h *TransferHandler) GetStats(c *gin.Context) {
	stats, err := h.cameraService.TransferStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to get transfer statistics", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Transfer statistics retrieved", stats)
}
