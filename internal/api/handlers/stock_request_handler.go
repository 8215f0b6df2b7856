package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmacy-platform/stock-request-service/internal/application"
	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	"github.com/pharmacy-platform/stock-request-service/pkg/api"
	"github.com/pharmacy-platform/stock-request-service/pkg/auth"
	apperrors "github.com/pharmacy-platform/stock-request-service/pkg/errors"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/middleware"
)

// StockRequestHandler handles stock request HTTP requests
type StockRequestHandler struct {
	service   *application.StockRequestService
	analytics *application.AnalyticsService
	logger    *logging.Logger
}

// NewStockRequestHandler creates a new stock request handler
func NewStockRequestHandler(service *application.StockRequestService, analytics *application.AnalyticsService, logger *logging.Logger) *StockRequestHandler {
	return &StockRequestHandler{
		service:   service,
		analytics: analytics,
		logger:    logger,
	}
}

// RegisterRoutes registers the stock request routes
func (h *StockRequestHandler) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/stock-requests")
	{
		requests.POST("", auth.Authorize(auth.RoleWorker), h.CreateRequest)
		requests.POST("/bulk", auth.Authorize(auth.RoleWorker), h.CreateBulk)
		requests.GET("/mine", auth.Authorize(auth.RoleWorker), h.ListMine)
		requests.GET("", auth.Authorize(auth.RoleOwner), h.ListRequests)
		requests.GET("/stats", auth.Authorize(auth.RoleOwner), h.GetStats)
		requests.GET("/number/:requestNumber", auth.Authorize(auth.RoleOwner), h.GetByNumber)
		requests.GET("/:id", h.GetRequest)
		requests.POST("/:id/review", auth.Authorize(auth.RoleOwner), h.BeginReview)
		requests.POST("/:id/approve", auth.Authorize(auth.RoleOwner), h.Approve)
		requests.POST("/:id/reject", auth.Authorize(auth.RoleOwner), h.Reject)
		requests.POST("/:id/dispatch", auth.Authorize(auth.RoleOwner), h.Dispatch)
		requests.POST("/:id/receive", auth.Authorize(auth.RoleOwner), h.Receive)
		requests.POST("/:id/cancel", auth.Authorize(auth.RoleWorker, auth.RoleOwner), h.Cancel)
	}
}

// CreateRequest handles POST /stock-requests
func (h *StockRequestHandler) CreateRequest(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.CreateRequestCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request created",
		"request_id", request.ID,
		"request_number", request.RequestNumber,
		"item_id", request.ItemID,
	)
	c.JSON(http.StatusCreated, gin.H{"data": request})
}

// CreateBulk handles POST /stock-requests/bulk
func (h *StockRequestHandler) CreateBulk(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.BulkCreateCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.CreateBulk(c.Request.Context(), actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	status := http.StatusCreated
	if len(result.Created) == 0 {
		status = http.StatusUnprocessableEntity
	} else if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"data": result})
}

// ListRequests handles GET /stock-requests
func (h *StockRequestHandler) ListRequests(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	listReq := api.ParseListRequest(c)
	filter, appErr := buildFilter(listReq.Filter)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	requests, total, err := h.service.List(c.Request.Context(), filter, toPagination(listReq.Pagination))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(requests, listReq.Pagination.Page, listReq.Pagination.PageSize, total))
}

// ListMine handles GET /stock-requests/mine
func (h *StockRequestHandler) ListMine(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	listReq := api.ParseListRequest(c)
	filter, appErr := buildFilter(listReq.Filter)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	requests, total, err := h.service.ListMine(c.Request.Context(), actor.ID, filter, toPagination(listReq.Pagination))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.NewPageResponse(requests, listReq.Pagination.Page, listReq.Pagination.PageSize, total))
}

// GetRequest handles GET /stock-requests/:id
func (h *StockRequestHandler) GetRequest(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	request, err := h.service.GetByID(c.Request.Context(), requestID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	// Workers may only see their own requests
	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}
	if actor.Role == auth.RoleWorker && request.RequestedBy != actor.ID {
		responder.RespondForbidden("You can only view your own requests")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": request})
}

// GetByNumber handles GET /stock-requests/number/:requestNumber
func (h *StockRequestHandler) GetByNumber(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestNumber := c.Param("requestNumber")

	request, err := h.service.GetByNumber(c.Request.Context(), requestNumber)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": request})
}

// GetStats handles GET /stock-requests/stats
func (h *StockRequestHandler) GetStats(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stats, err := h.analytics.Stats(c.Request.Context())
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// BeginReview handles POST /stock-requests/:id/review
func (h *StockRequestHandler) BeginReview(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	request, err := h.service.BeginReview(c.Request.Context(), requestID, actor.ID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": request})
}

// Approve handles POST /stock-requests/:id/approve
func (h *StockRequestHandler) Approve(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.ApproveCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	request, err := h.service.Approve(c.Request.Context(), requestID, actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request approved", "request_id", requestID, "reviewer_id", actor.ID)
	c.JSON(http.StatusOK, gin.H{"data": request})
}

// Reject handles POST /stock-requests/:id/reject
func (h *StockRequestHandler) Reject(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.RejectCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	request, err := h.service.Reject(c.Request.Context(), requestID, actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request rejected", "request_id", requestID, "reviewer_id", actor.ID)
	c.JSON(http.StatusOK, gin.H{"data": request})
}

// Dispatch handles POST /stock-requests/:id/dispatch
func (h *StockRequestHandler) Dispatch(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.DispatchCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	request, err := h.service.DispatchToVendor(c.Request.Context(), requestID, actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request dispatched to vendor",
		"request_id", requestID,
		"vendor_id", cmd.VendorID,
	)
	c.JSON(http.StatusOK, gin.H{"data": request})
}

// Receive handles POST /stock-requests/:id/receive
func (h *StockRequestHandler) Receive(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	var cmd application.ReceiveCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	request, err := h.service.MarkReceived(c.Request.Context(), requestID, actor.ID, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request received",
		"request_id", requestID,
		"received_quantity", request.ReceivedQuantity(),
	)
	c.JSON(http.StatusOK, gin.H{"data": request})
}

// Cancel handles POST /stock-requests/:id/cancel
func (h *StockRequestHandler) Cancel(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)
	requestID := c.Param("id")

	actor, ok := auth.CurrentActor(c)
	if !ok {
		responder.RespondUnauthorized("Authentication required")
		return
	}

	// Workers may only cancel their own requests; the lookup happens before
	// the transition so the ownership check sees current state.
	if actor.Role == auth.RoleWorker {
		existing, err := h.service.GetByID(c.Request.Context(), requestID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		if existing.RequestedBy != actor.ID {
			responder.RespondForbidden("You can only cancel your own requests")
			return
		}
	}

	request, err := h.service.Cancel(c.Request.Context(), requestID, actor.ID)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	h.logger.Info("Stock request cancelled", "request_id", requestID, "actor_id", actor.ID)
	c.JSON(http.StatusOK, gin.H{"data": request})
}

func toPagination(p api.PageRequest) domain.Pagination {
	return domain.Pagination{Page: p.Page, PageSize: p.PageSize}
}

func buildFilter(f api.FilterRequest) (domain.RequestFilter, *apperrors.AppError) {
	filter := domain.RequestFilter{Search: f.Search}

	if f.Status != "" {
		status := domain.RequestStatus(f.Status)
		if !status.IsValid() {
			return filter, apperrors.ErrValidation("invalid status filter").
				WithDetail("status", f.Status)
		}
		filter.Status = &status
	}

	if f.Urgency != "" {
		urgency := domain.UrgencyLevel(f.Urgency)
		if !urgency.IsValid() {
			return filter, apperrors.ErrValidation("invalid urgency filter").
				WithDetail("urgencyLevel", f.Urgency)
		}
		filter.Urgency = &urgency
	}

	return filter, nil
}
