package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/middle0128/Aitravel/internal/aiclient"
	"github.com/middle0128/Aitravel/internal/auth"
	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/dto"
	"github.com/middle0128/Aitravel/internal/recon"
	"github.com/middle0128/Aitravel/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler serves the itinerary editor. Every request builds a fresh
// reconciliation engine over the task store, so the server enforces the
// same validation and two-phase write the editor does locally.
type TaskHandler struct {
	store    recon.TaskStore
	orderSvc *service.OrderService
	ai       *aiclient.Client
}

// NewTaskHandler returns a new TaskHandler.
func NewTaskHandler(store recon.TaskStore, orderSvc *service.OrderService, ai *aiclient.Client) *TaskHandler {
	return &TaskHandler{store: store, orderSvc: orderSvc, ai: ai}
}

func (h *TaskHandler) engineFor(c *gin.Context) (*recon.Engine, string, bool) {
	orderID := c.Param("id")
	if _, err := h.orderSvc.GetByID(c.Request.Context(), orderID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, "", false
	}
	eng := recon.New(h.store, auth.ActorNameFromContext(c))
	if err := eng.Load(c.Request.Context(), orderID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return eng, orderID, true
}

// List godoc
// @Summary      List an order's tasks
// @Tags         tasks
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Group code"
// @Success      200  {object}  dto.ListTasksResponse
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /orders/{id}/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	eng, _, ok := h.engineFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Items:       tasksToRecords(eng.Records()),
		LastUpdated: watermark(eng),
	})
}

// Commit godoc
// @Summary      Commit one editing session
// @Description  Replays the submitted records and deletions through the
// @Description  reconciliation engine: deletions propagate first, then the
// @Description  changed records in one upsert. Validation failures refuse
// @Description  the whole batch.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Group code"
// @Param        body  body      dto.CommitTasksRequest  true  "Edited records and deleted ids"
// @Success      200   {object}  dto.CommitTasksResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  dto.ValidationErrorResponse
// @Failure      502   {object}  map[string]string
// @Router       /orders/{id}/tasks/commit [post]
func (h *TaskHandler) Commit(c *gin.Context) {
	var req dto.CommitTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eng, _, ok := h.engineFor(c)
	if !ok {
		return
	}

	for _, rec := range req.Records {
		eng.Apply(recordToTask(rec))
	}
	deleted := 0
	for _, id := range req.DeletedIDs {
		// Ids the server never saw are same-session additions the editor
		// already dropped locally; nothing to do for those.
		if err := eng.MarkDeleted(id); err == nil {
			deleted++
		}
	}
	upserts := len(eng.ChangedRecords())

	err := eng.Commit(c.Request.Context())
	switch {
	case err == nil:
	case errors.Is(err, recon.ErrNothingToCommit):
		c.JSON(http.StatusOK, dto.CommitTasksResponse{OK: true, Items: tasksToRecords(eng.Records()), LastUpdated: watermark(eng)})
		return
	default:
		var verr *recon.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, dto.ValidationErrorResponse{
				Error:  "validation failed",
				Fields: verr.Fields,
			})
			return
		}
		if errors.Is(err, recon.ErrCommitInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		// Delete or upsert propagation failure: partial progress is
		// preserved engine-side, surface which half failed.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.orderSvc.InvalidateCache(c.Request.Context())
	c.JSON(http.StatusOK, dto.CommitTasksResponse{
		OK:          true,
		Upserted:    upserts,
		Deleted:     deleted,
		Items:       tasksToRecords(eng.Records()),
		LastUpdated: watermark(eng),
	})
}

// ImportImage godoc
// @Summary      Recognize an itinerary image
// @Description  Forwards the uploaded image to the AI webhook and returns
// @Description  the cleaned text reply for the editor to preview and parse.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Group code"
// @Param        body  body      dto.ImportImageRequest  true  "Base64 image"
// @Success      200   {object}  dto.ImportImageResponse
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /orders/{id}/tasks/import [post]
func (h *TaskHandler) ImportImage(c *gin.Context) {
	if h.ai == nil || !h.ai.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI import is not configured"})
		return
	}
	var req dto.ImportImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := h.ai.RecognizeImage(c.Request.Context(), req.Image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ImportImageResponse{Payload: payload})
}

// ImportParse godoc
// @Summary      Preview an import payload
// @Description  Runs the batch-import conversion without persisting: a
// @Description  non-array payload is rejected wholesale, items get their
// @Description  defaults and fresh ids.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Group code"
// @Param        body  body      dto.ImportParseRequest  true  "JSON array payload"
// @Success      200   {object}  dto.ImportParseResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /orders/{id}/tasks/import/parse [post]
func (h *TaskHandler) ImportParse(c *gin.Context) {
	var req dto.ImportParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eng, _, ok := h.engineFor(c)
	if !ok {
		return
	}

	cleaned := aiclient.StripCodeFences(req.Payload)
	n, err := eng.ImportBatch([]byte(cleaned))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The imported rows are exactly the dirty ones: the engine was loaded
	// clean immediately before.
	c.JSON(http.StatusOK, dto.ImportParseResponse{
		Count: n,
		Items: tasksToRecords(eng.ChangedRecords()),
	})
}

func watermark(eng *recon.Engine) *time.Time {
	t := eng.LastUpdated()
	if t.IsZero() {
		return nil
	}
	return &t
}

func recordToTask(r dto.TaskRecord) dom.Task {
	return dom.Task{
		ID:           r.ID,
		OrderID:      r.OrderID,
		DayNumber:    r.DayNumber,
		Category:     r.Category,
		ItemName:     r.ItemName,
		StartTime:    r.StartTime,
		ContactPhone: r.ContactPhone,
		Remarks:      r.Remarks,
		Assignee:     r.Assignee,
		IsCompleted:  r.IsCompleted,
		IsPriority:   r.IsPriority,
		HasIssue:     r.HasIssue,
		UpdatedAt:    r.UpdatedAt,
	}
}

func taskToRecord(t dom.Task) dto.TaskRecord {
	return dto.TaskRecord{
		ID:           t.ID,
		OrderID:      t.OrderID,
		DayNumber:    t.DayNumber,
		Category:     t.Category,
		ItemName:     t.ItemName,
		StartTime:    t.StartTime,
		ContactPhone: t.ContactPhone,
		Remarks:      t.Remarks,
		Assignee:     t.Assignee,
		IsCompleted:  t.IsCompleted,
		IsPriority:   t.IsPriority,
		HasIssue:     t.HasIssue,
		UpdatedAt:    t.UpdatedAt,
	}
}

func tasksToRecords(list []dom.Task) []dto.TaskRecord {
	out := make([]dto.TaskRecord, len(list))
	for i := range list {
		out[i] = taskToRecord(list[i])
	}
	return out
}
