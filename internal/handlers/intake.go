package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hexascan-dev/hexascan/db"
	"github.com/hexascan-dev/hexascan/internal/contacts"
	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/store"
	"github.com/hexascan-dev/hexascan/internal/types"
)

type CreateCheckResultRequest struct {
	SiteID      uint                   `json:"site_id" binding:"required"`
	CheckName   string                 `json:"check_name" binding:"required"`
	MonitorType string                 `json:"monitor_type" binding:"required"` // "system_health", "cpu", "wordpress_health", etc.
	Status      string                 `json:"status" binding:"required"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details"`
	CheckedAt   *time.Time             `json:"checked_at"`
}

// CreateCheckResult is the intake endpoint for the external check pipeline.
// A failing result opens an escalation issue unless one is already open for
// the same site+check; a succeeding result auto-resolves the open issue.
func CreateCheckResult(ctx *gin.Context) {
	var req CreateCheckResultRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != types.CheckStatusSuccess && req.Status != types.CheckStatusFailure {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status must be success or failure"})
		return
	}

	var site models.Site

	if err := db.DB.First(&site, req.SiteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve site"})
		}
		return
	}

	detailsJSON, err := json.Marshal(req.Details)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid details format"})
		return
	}

	checkedAt := time.Now()

	if req.CheckedAt != nil {
		checkedAt = *req.CheckedAt
	}

	result := models.CheckResult{
		SiteID:      site.ID,
		CheckName:   req.CheckName,
		MonitorType: req.MonitorType,
		Status:      req.Status,
		Message:     req.Message,
		Details:     detailsJSON,
		CheckedAt:   checkedAt,
	}

	if err := db.DB.Create(&result).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store check result"})
		return
	}

	if req.Status == types.CheckStatusSuccess {
		resolveOpenIssue(ctx, site, result)
		return
	}

	openIssue(ctx, site, result)
}

func openIssue(ctx *gin.Context, site models.Site, result models.CheckResult) {
	existing, err := issueStore.FindOpenBySiteCheck(ctx.Request.Context(), site.ID, result.CheckName)

	if err == nil {
		ctx.JSON(http.StatusOK, gin.H{"message": "Issue already open", "check_result_id": result.ID, "issue_id": existing.ID})
		return
	}

	if !errors.Is(err, store.ErrNotFound) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up open issues"})
		return
	}

	issue, err := engine.Create(ctx.Request.Context(), escalation.CreateInput{
		OrganizationID: site.OrganizationID,
		SiteID:         site.ID,
		CheckResultID:  result.ID,
		SiteName:       site.Name,
		SiteURL:        site.URL,
		CheckName:      result.CheckName,
		MonitorType:    result.MonitorType,
		Contacts:       contacts.Resolve(site),
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Escalation issue opened", "check_result_id": result.ID, "issue_id": issue.ID})
}

func resolveOpenIssue(ctx *gin.Context, site models.Site, result models.CheckResult) {
	existing, err := issueStore.FindOpenBySiteCheck(ctx.Request.Context(), site.ID, result.CheckName)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusCreated, gin.H{"message": "Check result stored", "check_result_id": result.ID})
			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up open issues"})
		return
	}

	if _, err := engine.AutoResolve(ctx.Request.Context(), existing.ID, "Check recovered: "+result.CheckName); err != nil {
		log.Printf("Failed to auto-resolve issue %d: %v", existing.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to auto-resolve issue"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Issue auto-resolved", "check_result_id": result.ID, "issue_id": existing.ID})
}
