package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
	"chatlink/internal/services"
)

// LinkHandler handles channel verification and link management requests.
type LinkHandler struct {
	verificationService services.VerificationServicer
	auditService        services.AuditServicer
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(verificationService services.VerificationServicer, auditService services.AuditServicer) *LinkHandler {
	return &LinkHandler{
		verificationService: verificationService,
		auditService:        auditService,
	}
}

// GenerateLinkRequest selects the channel to verify.
type GenerateLinkRequest struct {
	ChannelID string `json:"channel_id" binding:"required,channel_id"`
}

// FinalizeLinkRequest is the bot backend's confirmation payload.
type FinalizeLinkRequest struct {
	Nonce          string `json:"nonce" binding:"required"`
	ExternalHandle string `json:"external_handle" binding:"required"`
	DisplayName    string `json:"display_name"`
}

// Generate starts a verification attempt for the authenticated user
// @Summary     Generate a verification nonce
// @Description Start linking a chat channel: issues a nonce, deep link, and confirmation command
// @Tags        link
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GenerateLinkRequest true "Channel to link"
// @Success     201 {object} services.IssuedNonce "Nonce issued"
// @Failure     400 {object} ErrorResponse "Unsupported channel"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /link/generate [post]
func (h *LinkHandler) Generate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	issued, err := h.verificationService.IssueNonce(models.ChannelID(req.ChannelID), &userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditLinkGenerate, "verification", issued.Nonce, c.ClientIP(),
		map[string]any{"channel_id": req.ChannelID})
	c.JSON(http.StatusCreated, issued)
}

// GenerateForRegistration starts a verification attempt with no owner yet
// @Summary     Generate a registration-time verification nonce
// @Description Issue a nonce before an account exists; finalization creates the account
// @Tags        link
// @Accept      json
// @Produce     json
// @Param       request body GenerateLinkRequest true "Channel to link"
// @Success     201 {object} services.IssuedNonce "Nonce issued"
// @Failure     400 {object} ErrorResponse "Unsupported channel"
// @Router      /link/register [post]
func (h *LinkHandler) GenerateForRegistration(c *gin.Context) {
	var req GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	issued, err := h.verificationService.IssueNonce(models.ChannelID(req.ChannelID), nil)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, issued)
}

// Status reports the state of a verification attempt
// @Summary     Poll verification status
// @Description Report whether a nonce is pending, done, or expired. 404 means keep polling; 410 signals expiry.
// @Tags        link
// @Produce     json
// @Param       nonce path string true "Verification nonce"
// @Success     200 {object} services.VerificationStatus "Current state"
// @Failure     400 {object} ErrorResponse "Malformed nonce"
// @Failure     404 {object} ErrorResponse "Nonce not found"
// @Failure     410 {object} ErrorResponse "Nonce expired"
// @Router      /link/status/{nonce} [get]
func (h *LinkHandler) Status(c *gin.Context) {
	status, err := h.verificationService.Status(c.Param("nonce"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Expiry rides on the status code so pollers can distinguish it from a
	// nonce the server simply has not resolved yet.
	if status.State == services.VerificationExpired {
		respondWithError(c, apperrors.ErrNonceExpired)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Finalize resolves a nonce to a confirmed external handle
// @Summary     Finalize a verification attempt
// @Description Called by the bot backend once the user confirms in-channel. Idempotent.
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body FinalizeLinkRequest true "Confirmation payload"
// @Success     200 {object} models.ChannelLink "Link materialized"
// @Failure     404 {object} ErrorResponse "Nonce not found"
// @Failure     409 {object} ErrorResponse "Handle already linked"
// @Failure     410 {object} ErrorResponse "Nonce expired"
// @Router      /internal/link/finalize [post]
func (h *LinkHandler) Finalize(c *gin.Context) {
	var req FinalizeLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	link, err := h.verificationService.Finalize(req.Nonce, req.ExternalHandle, req.DisplayName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(link.UserID, services.AuditLinkFinalize, "channel_link", link.ID, c.ClientIP(),
		map[string]any{"channel_id": string(link.ChannelID)})
	c.JSON(http.StatusOK, link)
}

// GetLinks returns the authenticated user's channel links
// @Summary     List channel links
// @Tags        link
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} object "Links"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /link [get]
func (h *LinkHandler) GetLinks(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	links, err := h.verificationService.GetUserLinks(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

// Unlink removes the user's link on one channel
// @Summary     Unlink a channel
// @Tags        link
// @Produce     json
// @Security    BearerAuth
// @Param       channel_id path string true "Channel"
// @Success     204 "Unlinked"
// @Failure     400 {object} ErrorResponse "Unsupported channel"
// @Failure     404 {object} ErrorResponse "No link on this channel"
// @Router      /link/{channel_id} [delete]
func (h *LinkHandler) Unlink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	channel, err := parseChannelID(c, "channel_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.verificationService.Unlink(userID, channel); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditLinkUnlink, "channel_link", string(channel), c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}
