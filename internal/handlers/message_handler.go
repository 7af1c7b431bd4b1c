package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
	"chatlink/internal/pagination"
	"chatlink/internal/services"
)

// MessageHandler handles message ingest and listing requests.
type MessageHandler struct {
	messageService services.MessageServicer
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.MessageServicer) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// IngestMessageRequest is the bot backend's inbound message payload.
type IngestMessageRequest struct {
	ChannelID      string     `json:"channel_id" binding:"required,channel_id"`
	ExternalHandle string     `json:"external_handle" binding:"required"`
	Body           string     `json:"body"`
	OccurredAt     *time.Time `json:"occurred_at"`
}

// ListMessagesQuery holds the list endpoint's filters.
type ListMessagesQuery struct {
	pagination.PageRequest
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	ChannelID string     `form:"channel_id" binding:"omitempty,channel_id"`
	Kind      string     `form:"kind" binding:"omitempty,message_kind"`
}

// Ingest records an inbound message from a linked channel
// @Summary     Ingest an inbound message
// @Description Called by the bot backend; the handle is resolved to its owning link
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body IngestMessageRequest true "Inbound message"
// @Success     201 {object} models.Message "Message recorded"
// @Failure     404 {object} ErrorResponse "Handle not linked"
// @Router      /internal/messages [post]
func (h *MessageHandler) Ingest(c *gin.Context) {
	var req IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	msg, err := h.messageService.RecordInbound(models.ChannelID(req.ChannelID), req.ExternalHandle, req.Body, occurredAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// List returns the authenticated user's messages
// @Summary     List messages
// @Tags        messages
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       channel_id query string false "Filter by channel"
// @Param       kind query string false "Filter by direction"
// @Success     200 {object} object "Paginated messages"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	query.Defaults()

	filter := services.MessageFilter{FromDate: query.From, ToDate: query.To}
	if query.ChannelID != "" {
		channel := models.ChannelID(query.ChannelID)
		filter.ChannelID = &channel
	}
	if query.Kind != "" {
		kind := models.MessageKind(query.Kind)
		filter.Kind = &kind
	}

	page, err := h.messageService.GetUserMessages(userID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
