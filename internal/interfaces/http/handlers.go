package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/service"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/errs"
)

// actorHeader carries the authenticated actor's id. Authentication happens
// upstream; the engine trusts the identity it is handed and only resolves
// the role from its own actor store.
const actorHeader = "X-Actor-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService service.WorkflowService
	soaService      service.SoaService
	auditService    service.AuditService
	actorService    service.ActorService
	maxUploadSize   int64
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	soaService service.SoaService,
	auditService service.AuditService,
	actorService service.ActorService,
	maxUploadSize int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService: workflowService,
		soaService:      soaService,
		auditService:    auditService,
		actorService:    actorService,
		maxUploadSize:   maxUploadSize,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RegisterActorRequest is the payload for creating an actor
type RegisterActorRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

// CreateBatchRequest is the payload for creating a batch
type CreateBatchRequest struct {
	Title string `json:"title" binding:"required"`
}

// DecisionRequest is the payload for approve/reject
type DecisionRequest struct {
	Comment string `json:"comment"`
}

// ListRequest represents common pagination query parameters
type ListRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (r *ListRequest) normalize() {
	if r.Limit <= 0 || r.Limit > 100 {
		r.Limit = 20
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// RegisterActor handles POST /api/actors
func (h *Handlers) RegisterActor(c *gin.Context) {
	var req RegisterActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid actor payload")
		return
	}

	actor, err := h.actorService.Register(c.Request.Context(), req.DisplayName, entity.Role(req.Role))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: actor})
}

// GetActor handles GET /api/actors/:id
func (h *Handlers) GetActor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	actor, err := h.actorService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: actor})
}

// CreateBatch handles POST /api/batches
func (h *Handlers) CreateBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid batch payload")
		return
	}

	batch, err := h.workflowService.CreateBatch(c.Request.Context(), actor, req.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: batch})
}

// ListBatches handles GET /api/batches
func (h *Handlers) ListBatches(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}
	req.normalize()

	batches, err := h.workflowService.ListBatches(c.Request.Context(), actor, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: batches})
}

// GetBatch handles GET /api/batches/:id
func (h *Handlers) GetBatch(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflowService.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	total, err := h.workflowService.BatchTotal(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"batch": batch,
		"total": total,
	}})
}

// AddRequest handles POST /api/batches/:id/requests
func (h *Handlers) AddRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	var fields entity.RequestFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.badRequest(c, "invalid request payload")
		return
	}

	req, err := h.workflowService.AddRequest(c.Request.Context(), actor, batchID, fields)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListBatchRequests handles GET /api/batches/:id/requests
func (h *Handlers) ListBatchRequests(c *gin.Context) {
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	requests, err := h.workflowService.ListBatchRequests(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// SubmitBatch handles POST /api/batches/:id/submit
func (h *Handlers) SubmitBatch(c *gin.Context) {
	h.executeBatchAction(c, lifecycle.ActionSubmit)
}

// CancelBatch handles POST /api/batches/:id/cancel
func (h *Handlers) CancelBatch(c *gin.Context) {
	h.executeBatchAction(c, lifecycle.ActionCancel)
}

func (h *Handlers) executeBatchAction(c *gin.Context, action lifecycle.Action) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.workflowService.Execute(c.Request.Context(), actor,
		entity.EntityBatch, batchID, action, service.ExecutePayload{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// BatchActions handles GET /api/batches/:id/actions
func (h *Handlers) BatchActions(c *gin.Context) {
	h.permittedActions(c, entity.EntityBatch)
}

// RequestActions handles GET /api/requests/:id/actions
func (h *Handlers) RequestActions(c *gin.Context) {
	h.permittedActions(c, entity.EntityRequest)
}

func (h *Handlers) permittedActions(c *gin.Context, entityType string) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	actions, err := h.workflowService.GetPermittedActions(c.Request.Context(), actor, entityType, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if actions == nil {
		actions = []lifecycle.Action{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: actions})
}

// ProcessBatch handles POST /api/batches/:id/process
func (h *Handlers) ProcessBatch(c *gin.Context) {
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflowService.ProcessBatch(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: batch})
}

// CompleteBatch handles POST /api/batches/:id/complete
func (h *Handlers) CompleteBatch(c *gin.Context) {
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	batch, err := h.workflowService.CompleteBatch(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: batch})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	req, err := h.workflowService.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// EditRequest handles PATCH /api/requests/:id
func (h *Handlers) EditRequest(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var fields entity.RequestFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.badRequest(c, "invalid edit payload")
		return
	}

	result, err := h.workflowService.Execute(c.Request.Context(), actor,
		entity.EntityRequest, id, lifecycle.ActionEdit,
		service.ExecutePayload{Fields: &fields})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ApproveRequest handles POST /api/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	h.executeDecision(c, lifecycle.ActionApprove)
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	h.executeDecision(c, lifecycle.ActionReject)
}

func (h *Handlers) executeDecision(c *gin.Context, action lifecycle.Action) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid decision payload")
			return
		}
	}

	result, err := h.workflowService.Execute(c.Request.Context(), actor,
		entity.EntityRequest, id, action,
		service.ExecutePayload{Comment: req.Comment})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// MarkPaid handles POST /api/requests/:id/mark-paid
func (h *Handlers) MarkPaid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.workflowService.Execute(c.Request.Context(), actor,
		entity.EntityRequest, id, lifecycle.ActionMarkPaid, service.ExecutePayload{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// UploadSoa handles POST /api/requests/:id/soa
func (h *Handlers) UploadSoa(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		h.badRequest(c, "document file is required")
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		h.badRequest(c, "document exceeds maximum upload size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if int64(len(content)) > h.maxUploadSize {
		h.badRequest(c, "document exceeds maximum upload size")
		return
	}

	version, err := h.soaService.Upload(c.Request.Context(), actor, id, fileHeader.Filename, content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: version})
}

// ListSoaVersions handles GET /api/requests/:id/soa
func (h *Handlers) ListSoaVersions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	versions, err := h.soaService.ListVersions(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: versions})
}

// DownloadSoa handles GET /api/soa/:id/download
func (h *Handlers) DownloadSoa(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	artifact, err := h.soaService.Download(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

// LiveSoaSummary handles GET /api/batches/:id/soa-summary
func (h *Handlers) LiveSoaSummary(c *gin.Context) {
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	summaries, err := h.soaService.LiveSummary(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summaries})
}

// ExportSoa handles GET /api/batches/:id/soa-export
func (h *Handlers) ExportSoa(c *gin.Context) {
	batchID, ok := h.pathID(c)
	if !ok {
		return
	}

	format := entity.ExportFormat(c.DefaultQuery("format", string(entity.FormatPDF)))
	artifact, err := h.soaService.Export(c.Request.Context(), batchID, format)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

// ApprovalQueue handles GET /api/approval-queue
func (h *Handlers) ApprovalQueue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}
	req.normalize()

	items, err := h.workflowService.ApprovalQueue(c.Request.Context(), actor, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: items})
}

// AuditQueryRequest represents query parameters for the audit trail
type AuditQueryRequest struct {
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	ActorID    string `form:"actor_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// QueryAudit handles GET /api/audit
func (h *Handlers) QueryAudit(c *gin.Context) {
	var req AuditQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}

	filter := entity.AuditFilter{EntityType: req.EntityType}
	if req.EntityID != "" {
		id, err := uuid.Parse(req.EntityID)
		if err != nil {
			h.badRequest(c, "invalid entity_id")
			return
		}
		filter.EntityID = id
	}
	if req.ActorID != "" {
		id, err := uuid.Parse(req.ActorID)
		if err != nil {
			h.badRequest(c, "invalid actor_id")
			return
		}
		filter.ActorID = id
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			h.badRequest(c, "invalid from timestamp")
			return
		}
		filter.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			h.badRequest(c, "invalid to timestamp")
			return
		}
		filter.To = to
	}

	list := ListRequest{Limit: req.Limit, Offset: req.Offset}
	list.normalize()

	entries, err := h.auditService.Query(c.Request.Context(), filter, list.Limit, list.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// actor resolves the calling actor from the X-Actor-ID header
func (h *Handlers) actor(c *gin.Context) (*entity.Actor, bool) {
	raw := c.GetHeader(actorHeader)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + actorHeader + " header",
		})
		return nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "invalid " + actorHeader + " header",
		})
		return nil, false
	}

	actor, err := h.actorService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown actor",
			})
			return nil, false
		}
		h.respondError(c, err)
		return nil, false
	}
	return actor, true
}

// pathID parses the :id path parameter
func (h *Handlers) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps engine error kinds onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("Unhandled request error", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
