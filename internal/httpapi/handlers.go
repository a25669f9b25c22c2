package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/auth"
	"hiring-pipeline/internal/rbac"
	"hiring-pipeline/internal/timeline"
	"hiring-pipeline/internal/workflow"
	"hiring-pipeline/pkg/logger"
	"hiring-pipeline/pkg/utils"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Workflow *workflow.Service
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Role   string `json:"role" validate:"required,oneof=system candidate recruiter admin"`
}

// Login issues a JWT token pair.
//
// NOTE: Only registered in local/dev. It does not check credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errs := utils.ValidateStruct(&req); len(errs) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": errs})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Applications ---

type createApplicationRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,max=128"`
	JobID       string `json:"job_id" validate:"required,max=128"`
}

func (h Handlers) CreateApplication(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	_, role, ok := actor(c)
	if !ok {
		return
	}
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errs := utils.ValidateStruct(&req); len(errs) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": errs})
		return
	}

	app, err := h.Workflow.CreateApplication(c.Request.Context(), workflow.CreateApplicationRequest{
		CandidateID: req.CandidateID,
		JobID:       req.JobID,
		ActorRole:   role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h Handlers) GetApplication(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	app, err := h.Workflow.GetApplication(c.Request.Context(), c.Param("application_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h Handlers) GetTimeline(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id := c.Param("application_id")
	entries, err := h.Workflow.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application_id": id, "timeline": entries})
}

// ListTransitions answers "what can I do next" for the calling role.
func (h Handlers) ListTransitions(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	_, role, ok := actor(c)
	if !ok {
		return
	}
	id := c.Param("application_id")
	next, err := h.Workflow.AllowedTransitions(c.Request.Context(), id, role)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(next))
	for _, t := range next {
		out = append(out, gin.H{"to_status": t.To, "requires_note": t.RequiresNote})
	}
	c.JSON(http.StatusOK, gin.H{"application_id": id, "transitions": out})
}

type transitionRequest struct {
	ToStatus string `json:"to_status" validate:"required,max=64"`
	ToStep   string `json:"to_step,omitempty" validate:"omitempty,max=64"`
	Note     string `json:"note,omitempty" validate:"omitempty,max=4000"`
}

func (h Handlers) RequestTransition(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errs := utils.ValidateStruct(&req); len(errs) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": errs})
		return
	}

	app, err := h.Workflow.RequestTransition(c.Request.Context(), workflow.TransitionRequest{
		ApplicationID: c.Param("application_id"),
		ToStatus:      applications.Status(strings.TrimSpace(req.ToStatus)),
		ToStep:        applications.Step(strings.TrimSpace(req.ToStep)),
		Note:          req.Note,
		ActorRole:     role,
		ActorUserID:   userID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ScheduleScreening creates the next screening call attempt.
// RBAC: recruiter, system or admin (route group).
func (h Handlers) ScheduleScreening(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	call, app, err := h.Workflow.ScheduleScreening(c.Request.Context(), workflow.ScheduleRequest{
		ApplicationID: c.Param("application_id"),
		ActorRole:     role,
		ActorUserID:   userID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"screening_call": call, "application": app})
}

func (h Handlers) ListScreenings(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id := c.Param("application_id")
	calls, err := h.Workflow.Screenings(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application_id": id, "screening_calls": calls})
}

// --- Admin ---

// ListAuditEvents returns internal audit records for one application.
// RBAC: admin only.
func (h Handlers) ListAuditEvents(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	evs, err := h.Audit.List(c.Request.Context(), audit.Filter{
		ApplicationID: c.Param("application_id"),
		Type:          audit.EventType(c.Query("type")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

func (h Handlers) ready(c *gin.Context) bool {
	if h.Workflow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "workflow not configured"})
		return false
	}
	return true
}

// actor reads the authenticated caller. It aborts with 401 when identity is missing.
func actor(c *gin.Context) (string, rbac.Role, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil || uid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", "", false
	}
	role, ok := rbac.ActorRole(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
		return "", "", false
	}
	return uid, role, true
}

// writeError maps workflow errors onto HTTP statuses. A TransitionError carries the
// rejected pair so clients can explain the refusal.
func writeError(c *gin.Context, err error) {
	var terr *workflow.TransitionError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, workflow.ErrNoteRequired) && errors.As(err, &terr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, transitionBody(terr))
	case errors.As(err, &terr):
		c.AbortWithStatusJSON(http.StatusConflict, transitionBody(terr))
	case errors.Is(err, workflow.ErrScreeningLimit), errors.Is(err, workflow.ErrScreeningActive):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, timeline.ErrOrderingViolation):
		logger.FromGin(c).Error("timeline ordering violation", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "timeline ordering violation"})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func transitionBody(e *workflow.TransitionError) gin.H {
	return gin.H{
		"error":      e.Reason,
		"from":       e.From,
		"to":         e.To,
		"actor_role": e.Role,
	}
}
