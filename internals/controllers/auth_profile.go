package controllers

import (
	"errors"
	"net/http"

	"chat-friendly/internals/metrics"
	"chat-friendly/internals/middleware"
	"chat-friendly/internals/models"
	"chat-friendly/internals/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileController struct {
	DB      *gorm.DB
	Avatars *storage.AvatarStore
	Logger  *zap.Logger
}

func NewProfileController(db *gorm.DB, avatars *storage.AvatarStore, logger *zap.Logger) *ProfileController {
	return &ProfileController{
		DB:      db,
		Avatars: avatars,
		Logger:  logger,
	}
}

// CheckAuth resolves a validated identity back to its current record.
// Runs behind VerifyToken only, so the record load happens here.
func (p *ProfileController) CheckAuth(c *gin.Context) {
	userID := c.GetUint(middleware.CtxUserID)

	var user models.User
	if err := p.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.Observe("check_auth", "rejected")
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		metrics.Observe("check_auth", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	metrics.Observe("check_auth", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Profile returns the record ResolveUser already attached.
func (p *ProfileController) Profile(c *gin.Context) {
	user := c.MustGet(middleware.CtxUser).(models.User)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateProfile applies a partial update of name, status, and avatar. An
// avatar sent as a data URL is uploaded to object storage and persisted as
// its canonical URL; a plain URL is stored as-is.
func (p *ProfileController) UpdateProfile(c *gin.Context) {
	user := c.MustGet(middleware.CtxUser).(models.User)

	var body struct {
		Name       *string `json:"name"`
		Status     *string `json:"status"`
		ProfilePic *string `json:"profilePic"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.Observe("update_profile", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Failed to read body"})
		return
	}

	updates := map[string]interface{}{}
	if body.Name != nil {
		updates["name"] = *body.Name
	}
	if body.Status != nil {
		updates["status"] = *body.Status
	}
	if body.ProfilePic != nil {
		pic := *body.ProfilePic
		if storage.IsDataURL(pic) {
			if p.Avatars == nil {
				metrics.Observe("update_profile", "rejected")
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image uploads are not enabled"})
				return
			}
			url, err := p.Avatars.Upload(c.Request.Context(), pic)
			if err != nil {
				if errors.Is(err, storage.ErrInvalidImage) {
					metrics.Observe("update_profile", "rejected")
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid image payload"})
					return
				}
				metrics.Observe("update_profile", "error")
				p.Logger.Error("avatar upload failed", zap.Uint("user_id", user.ID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
				return
			}
			pic = url
		}
		updates["profile_pic"] = pic
	}

	if len(updates) == 0 {
		metrics.Observe("update_profile", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nothing to update"})
		return
	}

	if err := p.DB.Model(&user).Updates(updates).Error; err != nil {
		metrics.Observe("update_profile", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	p.DB.First(&user, user.ID)

	metrics.Observe("update_profile", "ok")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}
