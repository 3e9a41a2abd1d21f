package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"farmtrack-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint             string   `json:"endpoint" binding:"required"`
	P256DH               string   `json:"p256dh" binding:"required"`
	Auth                 string   `json:"auth" binding:"required"`
	SubscribedPanchayats []string `json:"subscribed_panchayats"`
}

// PutSubscription creates or replaces a subscription and its panchayat list.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "endpoint, p256dh and auth are required")
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: h.now().UTC(),
	}

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var panchayats []model.Panchayat
		if len(req.SubscribedPanchayats) > 0 {
			if err := tx.Where("id IN ?", req.SubscribedPanchayats).Find(&panchayats).Error; err != nil {
				return err
			}
		}

		refs := make([]*model.Panchayat, len(panchayats))
		for i := range panchayats {
			refs[i] = &panchayats[i]
		}
		return tx.Model(&subscription).Association("Panchayats").Replace(refs)
	})
	if err != nil {
		h.internalError(c, "Failed to save subscription", err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "endpoint is required")
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		h.internalError(c, "Failed to delete subscription", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription returns the panchayats a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		respondError(c, http.StatusBadRequest, "invalid_input", "endpoint is required")
		return
	}

	var subscription model.PushSubscription
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Panchayats").
		First(&subscription, "endpoint = ?", endpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		h.internalError(c, "Failed to fetch subscription", err)
		return
	}

	ids := make([]string, len(subscription.Panchayats))
	for i, p := range subscription.Panchayats {
		ids[i] = p.ID
	}
	c.JSON(http.StatusOK, gin.H{"subscribed_panchayats": ids})
}
