package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"notify-gateway/internal/db"
	"notify-gateway/internal/models"
	"notify-gateway/internal/notification"
	"notify-gateway/internal/otp"
)

const maxBulkItems = 100

type sendNotificationRequest struct {
	Channel   string `json:"channel" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	notification.SendOptions
}

type bulkRequest struct {
	Notifications []notification.BulkItem `json:"notifications" binding:"required,min=1"`
}

type otpOptions struct {
	TTLMinutes    int    `json:"ttlMinutes" binding:"omitempty,min=1,max=1440"`
	TemplateID    string `json:"templateId"`
	RecipientName string `json:"recipientName"`
}

func (o otpOptions) toSendOptions() otp.SendOptions {
	return otp.SendOptions{
		TTL:           time.Duration(o.TTLMinutes) * time.Minute,
		TemplateID:    o.TemplateID,
		RecipientName: o.RecipientName,
	}
}

type otpEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	otpOptions
}

type otpSMSRequest struct {
	Phone string `json:"phone" binding:"required"`
	otpOptions
}

type otpBothRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required"`
	otpOptions
}

type verifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"otp" binding:"required"`
}

// allowed aborts with 403 when the caller's token may not use channel.
// Unknown channels pass so the dispatcher reports them.
func allowed(c *gin.Context, channel string) bool {
	ch, ok := models.ParseChannel(channel)
	if !ok {
		return true
	}
	if tok := currentToken(c); tok != nil && !tok.Allows(ch) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access token is not allowed to use channel " + ch.String()})
		return false
	}
	return true
}

func resultStatus(res *notification.Result) int {
	switch {
	case res.Status == notification.StatusScheduled:
		return http.StatusAccepted
	case res.Success:
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}

// SendNotification godoc
// @Summary      Send a notification
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request body sendNotificationRequest true "Notification"
// @Success      200 {object} notification.Result
// @Success      202 {object} notification.Result "Scheduled"
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Failure      502 {object} notification.Result
// @Security     BearerAuth
// @Router       /notifications [post]
func (h *Handler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for notification: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !allowed(c, req.Channel) {
		return
	}

	res, err := h.notifications.SendNotification(c.Request.Context(), currentToken(c).ID, req.Channel, req.Recipient, req.SendOptions)
	if err != nil {
		h.logger.Errorf("Failed to send notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
		return
	}
	c.JSON(resultStatus(res), res)
}

// SendBulkNotifications godoc
// @Summary      Send notifications in bulk
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request body bulkRequest true "Notifications"
// @Success      200 {object} notification.BulkResult
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /notifications/bulk [post]
func (h *Handler) SendBulkNotifications(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for bulk notification: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if len(req.Notifications) > maxBulkItems {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At most " + strconv.Itoa(maxBulkItems) + " notifications per request"})
		return
	}
	for _, item := range req.Notifications {
		if !allowed(c, item.Channel) {
			return
		}
	}

	out := h.notifications.SendBulkNotifications(c.Request.Context(), currentToken(c).ID, req.Notifications)
	h.logger.Infof("Bulk send finished: %d/%d successful", out.Successful, out.Total)
	c.JSON(http.StatusOK, out)
}

// GetNotification godoc
// @Summary      Get a notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} models.Notification
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /notifications/{id} [get]
func (h *Handler) GetNotification(c *gin.Context) {
	id := c.Param("id")
	n, err := h.notifications.GetNotification(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Errorf("Failed to get notification %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notification"})
		return
	}
	if n.AccessTokenID != currentToken(c).ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, n)
}

// ListNotifications godoc
// @Summary      List notifications created by the caller's access token
// @Tags         notifications
// @Produce      json
// @Param        limit  query int false "Page size" default(50)
// @Param        offset query int false "Offset"
// @Success      200 {array} models.Notification
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	tokenID := currentToken(c).ID
	list, err := h.store.ListNotificationsByToken(c.Request.Context(), tokenID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list notifications for token %s: %v", tokenID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// SendOTPEmail godoc
// @Summary      Issue a one-time code by email
// @Tags         otp
// @Accept       json
// @Produce      json
// @Param        request body otpEmailRequest true "Recipient"
// @Success      200 {object} otp.SendResult
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /otp/email [post]
func (h *Handler) SendOTPEmail(c *gin.Context) {
	var req otpEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !allowed(c, models.ChannelEmail.String()) {
		return
	}

	res, err := h.otp.SendOTPViaEmail(c.Request.Context(), currentToken(c).ID, req.Email, req.toSendOptions())
	h.otpResponse(c, res, err)
}

// SendOTPSMS godoc
// @Summary      Issue a one-time code by SMS
// @Tags         otp
// @Accept       json
// @Produce      json
// @Param        request body otpSMSRequest true "Recipient"
// @Success      200 {object} otp.SendResult
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /otp/sms [post]
func (h *Handler) SendOTPSMS(c *gin.Context) {
	var req otpSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !allowed(c, models.ChannelSMS.String()) {
		return
	}

	res, err := h.otp.SendOTPViaSMS(c.Request.Context(), currentToken(c).ID, req.Phone, req.toSendOptions())
	h.otpResponse(c, res, err)
}

func (h *Handler) otpResponse(c *gin.Context, res *otp.SendResult, err error) {
	if err != nil {
		h.logger.Errorf("Failed to issue OTP: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue OTP"})
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

// SendOTPBoth godoc
// @Summary      Issue one code by email and SMS
// @Tags         otp
// @Accept       json
// @Produce      json
// @Param        request body otpBothRequest true "Recipients"
// @Success      200 {object} otp.BothResult
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /otp/both [post]
func (h *Handler) SendOTPBoth(c *gin.Context) {
	var req otpBothRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !allowed(c, models.ChannelEmail.String()) || !allowed(c, models.ChannelSMS.String()) {
		return
	}

	res, err := h.otp.SendOTPViaBoth(c.Request.Context(), currentToken(c).ID, req.Email, req.Phone, req.toSendOptions())
	if err != nil {
		h.logger.Errorf("Failed to issue OTP: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue OTP"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyOTP godoc
// @Summary      Verify a one-time code
// @Tags         otp
// @Accept       json
// @Produce      json
// @Param        request body verifyOTPRequest true "Identifier and code"
// @Success      200 {object} otp.VerifyResult
// @Failure      400 {object} otp.VerifyResult
// @Security     BearerAuth
// @Router       /otp/verify [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	res, err := h.otp.VerifyOTP(c.Request.Context(), req.Identifier, req.Code)
	if err != nil {
		h.logger.Errorf("Failed to verify OTP: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
		return
	}
	if !res.Valid {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetOTPInfo godoc
// @Summary      Inspect the pending code for an identifier
// @Tags         otp
// @Produce      json
// @Param        identifier path string true "Email or phone"
// @Success      200 {object} otp.Info
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /otp/{identifier} [get]
func (h *Handler) GetOTPInfo(c *gin.Context) {
	id := c.Param("identifier")
	info, err := h.otp.GetOTPInfo(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Failed to get OTP info for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get OTP info"})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OTP not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ClearOTP godoc
// @Summary      Discard the pending code for an identifier
// @Tags         otp
// @Produce      json
// @Param        identifier path string true "Email or phone"
// @Success      200 {object} map[string]bool
// @Security     BearerAuth
// @Router       /otp/{identifier} [delete]
func (h *Handler) ClearOTP(c *gin.Context) {
	id := c.Param("identifier")
	if err := h.otp.ClearOTP(c.Request.Context(), id); err != nil {
		h.logger.Errorf("Failed to clear OTP for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear OTP"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
