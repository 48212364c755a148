package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hexascan-dev/hexascan/db"
	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/types"
	"github.com/hexascan-dev/hexascan/internal/utils"
)

type IssueSummary struct {
	ID           uint       `json:"id"`
	SiteName     string     `json:"site_name"`
	CheckName    string     `json:"check_name"`
	MonitorType  string     `json:"monitor_type"`
	Status       string     `json:"status"`
	CurrentLevel int        `json:"current_level"`
	MaxLevel     int        `json:"max_level"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

type AdminUpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

type AdminAddReportRequest struct {
	Message string `json:"message" binding:"required"`
}

func ListEscalations(ctx *gin.Context) {
	query := db.DB.Model(&models.EscalationIssue{})

	if orgIDStr := ctx.Query("organization_id"); orgIDStr != "" {
		orgID, err := strconv.ParseUint(orgIDStr, 10, 32)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Organization ID"})
			return
		}

		query = query.Where("organization_id = ?", orgID)
	}

	if ctx.Query("open") == "true" {
		query = query.Where("status IN ?", []string{types.StatusOpen, types.StatusAcknowledged, types.StatusInProgress})
	}

	var issues []models.EscalationIssue

	if err := query.Order("id DESC").Limit(100).Find(&issues).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve escalations"})
		return
	}

	summaries := make([]IssueSummary, 0, len(issues))

	for _, issue := range issues {
		summaries = append(summaries, IssueSummary{
			ID:           issue.ID,
			SiteName:     issue.SiteName,
			CheckName:    issue.CheckName,
			MonitorType:  issue.MonitorType,
			Status:       issue.Status,
			CurrentLevel: issue.CurrentLevel,
			MaxLevel:     issue.MaxLevel,
			CreatedAt:    issue.CreatedAt,
			ResolvedAt:   issue.ResolvedAt,
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}

func GetEscalationAdmin(ctx *gin.Context) {
	issueID, err := utils.GetIssueID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := engine.View(ctx.Request.Context(), issueID, escalation.OperatorLevel)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func UpdateEscalationStatusAdmin(ctx *gin.Context) {
	operator, err := utils.GetCurrentOperator(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Operator not authenticated"})
		return
	}

	issueID, err := utils.GetIssueID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req AdminUpdateStatusRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := escalation.Actor{Name: operator.Name, Email: operator.Email}

	issue, err := engine.ApplyStatusUpdate(ctx.Request.Context(), issueID, escalation.OperatorLevel, actor, req.Status, req.Message)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Status updated", "status": issue.Status})
}

func AddEscalationReportAdmin(ctx *gin.Context) {
	operator, err := utils.GetCurrentOperator(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Operator not authenticated"})
		return
	}

	issueID, err := utils.GetIssueID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req AdminAddReportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := escalation.Actor{Name: operator.Name, Email: operator.Email}

	if err := engine.AddReport(ctx.Request.Context(), issueID, escalation.OperatorLevel, actor, req.Message); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Report added"})
}

func AutoResolveEscalation(ctx *gin.Context) {
	issueID, err := utils.GetIssueID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := engine.AutoResolve(ctx.Request.Context(), issueID, "Resolved by operator request")

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Issue auto-resolved", "status": issue.Status})
}
