package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmacy-platform/stock-request-service/internal/application"
	"github.com/pharmacy-platform/stock-request-service/pkg/auth"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/middleware"
)

// VendorHandler serves the vendor directory consulted when dispatching orders.
type VendorHandler struct {
	service *application.VendorService
	logger  *logging.Logger
}

// NewVendorHandler creates a new vendor handler
func NewVendorHandler(service *application.VendorService, logger *logging.Logger) *VendorHandler {
	return &VendorHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the vendor routes
func (h *VendorHandler) RegisterRoutes(r *gin.RouterGroup) {
	vendors := r.Group("/vendors", auth.Authorize(auth.RoleOwner))
	{
		vendors.GET("", h.ListVendors)
		vendors.GET("/:id", h.GetVendor)
	}
}

// ListVendors handles GET /vendors
func (h *VendorHandler) ListVendors(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	activeOnly := c.DefaultQuery("activeOnly", "true") != "false"

	vendors, err := h.service.ListVendors(c.Request.Context(), activeOnly)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  vendors,
		"total": len(vendors),
	})
}

// GetVendor handles GET /vendors/:id
func (h *VendorHandler) GetVendor(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	vendorID := c.Param("id")

	vendor, err := h.service.GetVendor(c.Request.Context(), vendorID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vendor})
}
