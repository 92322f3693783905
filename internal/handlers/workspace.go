package handlers

import (
	"net/http"

	"github.com/collabrium-dev/collabrium/db"
	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/utils"
	"github.com/collabrium-dev/collabrium/internal/workspaces"
	"github.com/gin-gonic/gin"
)

type CreateWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

type JoinWorkspaceRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type WorkspaceResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
}

func CreateWorkspace(ctx *gin.Context) {
	var req CreateWorkspaceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspace, role, err := workspaces.Create(db.DB, userID, req.Name)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"workspace": WorkspaceResponse{
			ID:         workspace.ID,
			Name:       workspace.Name,
			InviteCode: workspace.InviteCode,
		},
		"role": role,
	})
}

func ListWorkspaces(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	summaries, err := workspaces.ListForUser(db.DB, userID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results":    len(summaries),
		"workspaces": summaries,
	})
}

func GetWorkspace(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspaceID, err := utils.GetWorkspaceID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	workspace, role, err := workspaces.Get(db.DB, userID, workspaceID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"workspace": WorkspaceResponse{
			ID:         workspace.ID,
			Name:       workspace.Name,
			InviteCode: workspace.InviteCode,
		},
		"role": role,
	})
}

func JoinWorkspace(ctx *gin.Context) {
	var req JoinWorkspaceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspace, role, err := workspaces.Join(db.DB, userID, req.InviteCode)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"workspace_id":   workspace.ID,
		"workspace_name": workspace.Name,
		"role":           role,
	})
}

func UpdateWorkspace(ctx *gin.Context) {
	var req UpdateWorkspaceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspaceID, err := utils.GetWorkspaceID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	workspace, err := workspaces.Update(db.DB, userID, workspaceID, req.Name)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"workspace": WorkspaceResponse{
			ID:         workspace.ID,
			Name:       workspace.Name,
			InviteCode: workspace.InviteCode,
		},
	})
}

func DeleteWorkspace(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspaceID, err := utils.GetWorkspaceID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	if err := workspaces.Delete(db.DB, userID, workspaceID); err != nil {
		RespondError(ctx, err)
		return
	}

	BroadcastRefresh(workspaceID)

	ctx.Status(http.StatusNoContent)
}

func ListMembers(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspaceID, err := utils.GetWorkspaceID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	members, err := workspaces.Members(db.DB, userID, workspaceID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results": len(members),
		"members": members,
	})
}
