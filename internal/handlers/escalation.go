package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/tokens"
	"github.com/hexascan-dev/hexascan/internal/utils"
)

// The public escalation API is token-gated, not session-gated: the capability
// token from the notification link is the whole credential.

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Name    string `json:"name"`
	Email   string `json:"email" binding:"omitempty,email"`
	Message string `json:"message"`
}

type AddReportRequest struct {
	Message string `json:"message" binding:"required"`
	Name    string `json:"name"`
	Email   string `json:"email" binding:"omitempty,email"`
}

// verifyCapability checks the token in the query string and that it was
// minted for the issue in the path. A valid token for another issue grants
// nothing here.
func verifyCapability(ctx *gin.Context) (tokens.Capability, uint, bool) {
	issueID, err := utils.GetIssueID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return tokens.Capability{}, 0, false
	}

	tokenString := ctx.Query("token")

	if tokenString == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Escalation token is required"})
		return tokens.Capability{}, 0, false
	}

	capability, err := codec.Verify(tokenString)

	if err != nil {
		respondError(ctx, err)
		return tokens.Capability{}, 0, false
	}

	if capability.IssueID != issueID {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid escalation link"})
		return tokens.Capability{}, 0, false
	}

	return capability, issueID, true
}

func GetEscalation(ctx *gin.Context) {
	capability, issueID, ok := verifyCapability(ctx)

	if !ok {
		return
	}

	if err := engine.RecordView(ctx.Request.Context(), issueID, capability.Level); err != nil {
		respondError(ctx, err)
		return
	}

	view, err := engine.View(ctx.Request.Context(), issueID, capability.Level)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func UpdateEscalationStatus(ctx *gin.Context) {
	capability, issueID, ok := verifyCapability(ctx)

	if !ok {
		return
	}

	var req UpdateStatusRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := escalation.Actor{Name: req.Name, Email: req.Email}

	issue, err := engine.ApplyStatusUpdate(ctx.Request.Context(), issueID, capability.Level, actor, req.Status, req.Message)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Status updated", "status": issue.Status})
}

func AddEscalationReport(ctx *gin.Context) {
	capability, issueID, ok := verifyCapability(ctx)

	if !ok {
		return
	}

	var req AddReportRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := escalation.Actor{Name: req.Name, Email: req.Email}

	if err := engine.AddReport(ctx.Request.Context(), issueID, capability.Level, actor, req.Message); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Report added"})
}
