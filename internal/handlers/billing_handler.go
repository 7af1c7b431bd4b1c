package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
	"chatlink/internal/services"
)

// BillingHandler handles subscription state requests.
type BillingHandler struct {
	billingService services.BillingServicer
	auditService   services.AuditServicer
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService services.BillingServicer, auditService services.AuditServicer) *BillingHandler {
	return &BillingHandler{billingService: billingService, auditService: auditService}
}

// ChangePlanRequest selects the target plan.
type ChangePlanRequest struct {
	Plan string `json:"plan" binding:"required,plan"`
}

// ProcessorEventRequest is the payment processor's webhook payload, already
// normalized by the processor integration in front of this API.
type ProcessorEventRequest struct {
	ExternalSubID string     `json:"external_sub_id" binding:"required"`
	Plan          string     `json:"plan" binding:"required,plan"`
	Status        string     `json:"status" binding:"required"`
	PeriodEnd     *time.Time `json:"period_end"`
}

// GetSubscription returns the user's subscription
// @Summary     Get subscription
// @Tags        billing
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Subscription "Subscription state"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.billingService.EnsureSubscription(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// ChangePlan moves the user to a different plan
// @Summary     Change plan
// @Tags        billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ChangePlanRequest true "Target plan"
// @Success     200 {object} models.Subscription "Updated subscription"
// @Failure     400 {object} ErrorResponse "Unknown plan"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /billing/plan [put]
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sub, err := h.billingService.ChangePlan(userID, models.SubscriptionPlan(req.Plan))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditPlanChange, "subscription", sub.ID, c.ClientIP(),
		map[string]any{"plan": req.Plan})
	c.JSON(http.StatusOK, sub)
}

// Cancel cancels the user's subscription
// @Summary     Cancel subscription
// @Tags        billing
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Subscription "Canceled subscription"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No subscription"
// @Router      /billing/subscription [delete]
func (h *BillingHandler) Cancel(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.billingService.CancelSubscription(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditPlanCancel, "subscription", sub.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, sub)
}

// ProcessorEvent applies a payment processor status update
// @Summary     Apply processor event
// @Description Webhook-style endpoint keyed by the processor's subscription id
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body ProcessorEventRequest true "Processor event"
// @Success     200 {object} models.Subscription "Updated subscription"
// @Failure     404 {object} ErrorResponse "Unknown subscription"
// @Router      /internal/billing/events [post]
func (h *BillingHandler) ProcessorEvent(c *gin.Context) {
	var req ProcessorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sub, err := h.billingService.ApplyProcessorEvent(req.ExternalSubID,
		models.SubscriptionPlan(req.Plan), models.SubscriptionStatus(req.Status), req.PeriodEnd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(sub.UserID, services.AuditBillingUpdate, "subscription", sub.ID, c.ClientIP(),
		map[string]any{"plan": req.Plan, "status": req.Status, "external_sub_id": req.ExternalSubID})
	c.JSON(http.StatusOK, sub)
}
