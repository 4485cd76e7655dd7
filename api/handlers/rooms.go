// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/collab-canvas/backend/internal/model"
	"github.com/collab-canvas/backend/internal/repository"
	"github.com/collab-canvas/backend/internal/room"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// RoomHandler serves room diagnostics endpoints.
type RoomHandler struct {
	directory *room.Directory
	activity  *repository.ActivityRepository
}

// NewRoomHandler creates a new RoomHandler. The activity repository may be
// nil when activity recording is disabled.
func NewRoomHandler(directory *room.Directory, activity *repository.ActivityRepository) *RoomHandler {
	return &RoomHandler{
		directory: directory,
		activity:  activity,
	}
}

// ListRooms handles GET /api/rooms - lists all live rooms with their stats.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	ids := h.directory.Rooms()
	rooms := make([]room.Stats, 0, len(ids))
	for _, id := range ids {
		stats, err := h.directory.Stats(id)
		if err != nil {
			// Room torn down between listing and stats; skip it
			continue
		}
		rooms = append(rooms, stats)
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoomStats handles GET /api/rooms/:id/stats.
func (h *RoomHandler) GetRoomStats(c *gin.Context) {
	roomID := c.Param("id")

	stats, err := h.directory.Stats(roomID)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			sendError(c, http.StatusNotFound, "ROOM_NOT_FOUND", "Room "+roomID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get room stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetActivity handles GET /api/activity - recent room lifecycle events.
func (h *RoomHandler) GetActivity(c *gin.Context) {
	if h.activity == nil {
		sendError(c, http.StatusNotFound, "ACTIVITY_DISABLED", "Activity recording is disabled")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list activity: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// RegisterRoutes registers the room handler routes on a Gin router group.
func (h *RoomHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms", h.ListRooms)
	rg.GET("/rooms/:id/stats", h.GetRoomStats)
	rg.GET("/activity", h.GetActivity)
}
