package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/scheduler"
	"github.com/shiphub/backend/internal/interfaces/http/dto"
)

// OrderSyncer runs one user's order sync inline
type OrderSyncer interface {
	SyncUser(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error)
}

// SyncJobQueue is the scheduler surface used by the sync endpoints
type SyncJobQueue interface {
	Submit(userID uuid.UUID, kind scheduler.SyncJobKind, trigger scheduler.SyncJobTrigger) (*scheduler.SyncJob, error)
	GetJob(jobID uuid.UUID) (*scheduler.SyncJob, error)
	GetJobHistoryByUser(userID uuid.UUID, limit int) []*scheduler.SyncJob
}

// ShippingSweepTrigger starts the all-users shipping sweep
type ShippingSweepTrigger interface {
	SweepShippingAsync(ctx context.Context) error
}

// SyncHandler handles the manual sync endpoints
type SyncHandler struct {
	BaseHandler
	orders  OrderSyncer
	jobs    SyncJobQueue
	sweeper ShippingSweepTrigger
}

// NewSyncHandler creates a new SyncHandler. jobs and sweeper may be nil
// when the scheduler is disabled.
func NewSyncHandler(orders OrderSyncer, jobs SyncJobQueue, sweeper ShippingSweepTrigger) *SyncHandler {
	return &SyncHandler{orders: orders, jobs: jobs, sweeper: sweeper}
}

// SyncOrdersResponse is the outcome of an inline order sync
// @name HandlerSyncOrdersResponse
type SyncOrdersResponse struct {
	NewOrders     int               `json:"newOrders" example:"3"`
	UpdatedOrders int               `json:"updatedOrders" example:"12"`
	SkippedOrders int               `json:"skippedOrders" example:"0"`
	Errors        map[string]string `json:"errors"`
}

// SyncOrdersQuery is bound from the sync query string
type SyncOrdersQuery struct {
	Async bool `form:"async"`
}

// SyncJobListQuery is bound from the job list query string
type SyncJobListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// SyncOrders godoc
// @ID           syncOrders
// @Summary      Sync the caller's marketplace orders
// @Description  Fetches orders from every configured marketplace and reconciles them. With async=true the sync is queued and the job is returned.
// @Tags         sync
// @Produce      json
// @Param        async query bool false "Queue the sync instead of running it inline"
// @Success      200 {object} APIResponse[SyncOrdersResponse]
// @Success      202 {object} APIResponse[scheduler.SyncJob]
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/orders [post]
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var q SyncOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if q.Async {
		h.submitJob(c, userID, scheduler.SyncJobKindOrders)
		return
	}

	result, err := h.orders.SyncUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := SyncOrdersResponse{
		NewOrders:     result.NewOrders,
		UpdatedOrders: result.UpdatedOrders,
		SkippedOrders: result.SkippedOrders,
		Errors:        make(map[string]string, len(result.Errors)),
	}
	for code, msg := range result.Errors {
		resp.Errors[string(code)] = msg
	}
	h.Success(c, resp)
}

// SyncShipping godoc
// @ID           syncShipping
// @Summary      Start a shipping info sweep
// @Description  Starts the shipping info sweep across all users in the background. Requires the operator role.
// @Tags         sync
// @Produce      json
// @Success      202 {object} APIResponse[map[string]string]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/shipping [post]
func (h *SyncHandler) SyncShipping(c *gin.Context) {
	if h.sweeper == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, "Shipping sync is not enabled")
		return
	}
	if err := h.sweeper.SweepShippingAsync(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"status": "started"})
}

// ListJobs godoc
// @ID           listSyncJobs
// @Summary      List the caller's recent sync jobs
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Maximum jobs to return" minimum(1) maximum(100)
// @Success      200 {object} APIResponse[[]scheduler.SyncJob]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if h.jobs == nil {
		h.Success(c, []*scheduler.SyncJob{})
		return
	}

	var q SyncJobListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	jobs := h.jobs.GetJobHistoryByUser(userID, q.Limit)
	if jobs == nil {
		jobs = []*scheduler.SyncJob{}
	}
	h.Success(c, jobs)
}

// GetJob godoc
// @ID           getSyncJob
// @Summary      Get one of the caller's sync jobs
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[scheduler.SyncJob]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id} [get]
func (h *SyncHandler) GetJob(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}
	if h.jobs == nil {
		h.HandleError(c, scheduler.ErrJobNotFound)
		return
	}

	job, err := h.jobs.GetJob(uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// Other users' jobs are reported as missing.
	if job.UserID != userID {
		h.HandleError(c, scheduler.ErrJobNotFound)
		return
	}
	h.Success(c, job)
}

func (h *SyncHandler) submitJob(c *gin.Context, userID uuid.UUID, kind scheduler.SyncJobKind) {
	if h.jobs == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, "Background sync is not enabled")
		return
	}

	job, err := h.jobs.Submit(userID, kind, scheduler.SyncJobTriggerManual)
	if err != nil && !errors.Is(err, scheduler.ErrJobAlreadyQueued) {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, job)
}
