package handlers

import (
	"errors"
	"net/http"

	"github.com/middle0128/Aitravel/internal/auth"
	"github.com/middle0128/Aitravel/internal/dto"
	"github.com/middle0128/Aitravel/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler lets the signed-in user change display name and password.
type ProfileHandler struct {
	sessions *auth.Store
	userSvc  *service.UserService
}

// NewProfileHandler returns a new ProfileHandler.
func NewProfileHandler(sessions *auth.Store, userSvc *service.UserService) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, userSvc: userSvc}
}

// Update godoc
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body  dto.UpdateProfileRequest  true  "Fields to change"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /profile [patch]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := auth.UserIDFromContext(c)
	user, err := h.userSvc.UpdateProfile(c.Request.Context(), userID, req.DisplayName, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToUpdate):
			c.JSON(http.StatusOK, gin.H{"ok": true, "changed": false})
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		}
		return
	}

	// The session keeps a copy of the display name; refresh so the next
	// request stamps the new name as default assignee.
	if sessionID, cerr := c.Cookie(sessionCookieName); cerr == nil && sessionID != "" {
		_ = h.sessions.Refresh(c.Request.Context(), sessionID, auth.Session{UserID: user.ID, Name: user.DisplayName})
	}

	c.JSON(http.StatusOK, dto.UserResponse{ID: user.ID, Email: user.Email, Name: user.DisplayName})
}
