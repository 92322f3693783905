package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func pathID(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("missing " + name + " parameter")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}

	return uint(id), nil
}

func GetWorkspaceID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "workspace_id")
}

func GetListID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "list_id")
}

func GetTaskID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "task_id")
}

func GetCommentID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "comment_id")
}
