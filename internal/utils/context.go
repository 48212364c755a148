package utils

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hexascan-dev/hexascan/internal/middleware"
	"github.com/hexascan-dev/hexascan/internal/types"
)

func GetCurrentOperator(ctx *gin.Context) (middleware.Operator, error) {
	operator, exists := ctx.Get(types.ContextOperatorKey)

	if !exists {
		return middleware.Operator{}, fmt.Errorf("Operator not authenticated")
	}

	authenticatedOperator, ok := operator.(middleware.Operator)

	if !ok {
		return middleware.Operator{}, fmt.Errorf("Invalid operator type in context")
	}

	return authenticatedOperator, nil
}

func GetIssueID(ctx *gin.Context) (uint, error) {
	issueIDStr := ctx.Param("issue_id")

	if issueIDStr == "" {
		return 0, errors.New("Issue ID not found")
	}

	issueID, err := strconv.ParseUint(issueIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Issue ID")
	}

	return uint(issueID), nil
}
