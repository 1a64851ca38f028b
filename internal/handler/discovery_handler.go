// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camera-service/internal/discovery"
	"camera-service/internal/driver"
	"camera-service/internal/utils"
)

// DiscoveryHandler lists ports and supported camera models
type DiscoveryHandler struct {
	scanners *discovery.ScannerManager
	registry *driver.Registry
	logger   *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(scanners *discovery.ScannerManager, registry *driver.Registry, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		scanners: scanners,
		registry: registry,
		logger:   utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	d := router.Group("/discovery")
	{
		d.GET("/ports", h.ScanPorts)
		d.GET("/scanners", h.GetScanners)
		d.GET("/models", h.GetSupportedModels)
		d.GET("/models/:model", h.GetModel)
	}
}

// PortList is the result of a port scan
type PortList struct {
	PortsFound int               `json:"ports_found"`
	Ports      []*discovery.Port `json:"ports"`
}

// ScanPorts lists candidate camera ports
// @Summary Scan ports
// @Description Lists serial ports and HID UART bridges a camera could be attached to
// @Tags Discovery
// @Produce json
// @Param type query string false "Scanner type" Enums(all, serial, ch347) default(all)
// @Success 200 {object} utils.APIResponse{data=PortList} "Port scan completed"
// @Failure 400 {object} utils.APIResponse "Unknown scanner"
// @Router /discovery/ports [get]
func (h *DiscoveryHandler) ScanPorts(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	var (
		ports []*discovery.Port
		err   error
	)
	if scanType == "all" {
		ports, err = h.scanners.ScanAll(c.Request.Context())
	} else {
		ports, err = h.scanners.ScanByType(c.Request.Context(), scanType)
	}
	if err != nil {
		h.logger.Warn("Port scan failed", zap.String("type", scanType), zap.Error(err))
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to scan ports", err)
		return
	}
	if ports == nil {
		ports = []*discovery.Port{}
	}

	utils.SuccessResponse(c, http.StatusOK, "Port scan completed", PortList{
		PortsFound: len(ports),
		Ports:      ports,
	})
}

// GetScanners returns the scanners usable on this host
// @Summary Available scanners
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]string} "Scanners"
// @Router /discovery/scanners [get]
func (h *DiscoveryHandler) GetScanners(c *gin.Context) {
	scanners := h.scanners.GetAvailableScanners()
	if scanners == nil {
		scanners = []string{}
	}
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved", scanners)
}

// GetSupportedModels returns every camera profile
// @Summary Supported cameras
// @Description Camera models the service has register maps for
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]driver.Profile} "Supported models"
// @Router /discovery/models [get]
func (h *DiscoveryHandler) GetSupportedModels(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Supported models retrieved", h.registry.List())
}

// GetModel returns one camera profile
// @Summary Camera profile
// @Tags Discovery
// @Produce json
// @Param model path string true "Model name" Enums(photopc, olympus-d600l, sanyo-vpc-g200)
// @Success 200 {object} utils.APIResponse{data=driver.Profile} "Profile"
// @Failure 404 {object} utils.APIResponse "Model not supported"
// @Router /discovery/models/{model} [get]
func (h *DiscoveryHandler) GetModel(c *gin.Context) {
	p, err := h.registry.Lookup(c.Param("model"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Model not supported", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved", p)
}
