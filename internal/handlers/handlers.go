package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/store"
	"github.com/hexascan-dev/hexascan/internal/tokens"
)

var (
	engine     *escalation.Engine
	codec      *tokens.Codec
	issueStore store.IssueStore
)

// Init wires the handler package to the engine built in main.
func Init(e *escalation.Engine, c *tokens.Codec, s store.IssueStore) {
	engine = e
	codec = c
	issueStore = s
}

// respondError maps the engine's error taxonomy onto HTTP statuses without
// leaking anything the caller did not already supply.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, escalation.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, tokens.ErrExpired):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Escalation link has expired"})
	case errors.Is(err, tokens.ErrInvalid):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid escalation link"})
	case errors.Is(err, escalation.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrStaleState):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Issue was updated by someone else, please reload"})
	case errors.Is(err, store.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Escalation issue not found"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
