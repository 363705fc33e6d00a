package message

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

// MessageHandler handles REST API requests for booking chats.
type MessageHandler struct {
	svc Service
}

// NewHandler creates a new MessageHandler with the given service.
func NewHandler(svc Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// Send handles POST /api/v1/bookings/:id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	var req SendRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), middleware.CurrentActor(c), bookingID, req.Body)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, msg)
}

// List handles GET /api/v1/bookings/:id/messages?after_id=&limit=.
func (h *MessageHandler) List(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	afterID, err := queryUint(c, "after_id")
	if err != nil {
		pkg.Error(c, err)
		return
	}
	limit, err := queryUint(c, "limit")
	if err != nil {
		pkg.Error(c, err)
		return
	}

	page, err := h.svc.List(c.Request.Context(), middleware.CurrentActor(c), bookingID, afterID, int(limit))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, page)
}

// MarkRead handles PATCH /api/v1/bookings/:id/messages/read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	bookingID, ok := pkg.PathID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentActor(c), bookingID)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, ReadResult{Marked: n})
}

// UnreadCount handles GET /api/v1/messages/unread-count.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, UnreadCount{Count: n})
}

func queryUint(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, domain.Validation(name + " must be a non-negative integer")
	}
	return uint(v), nil
}
