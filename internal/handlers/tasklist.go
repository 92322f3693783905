package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/collabrium-dev/collabrium/db"
	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/models"
	"github.com/collabrium-dev/collabrium/internal/utils"
	"github.com/collabrium-dev/collabrium/internal/workspaces"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TaskListRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

type TaskListResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	WorkspaceID uint   `json:"workspace_id"`
}

// gateWorkspace resolves the requester, the workspace ID and the membership
// gate in one step; every workspace-scoped handler starts here.
func gateWorkspace(ctx *gin.Context, requiredRoles ...models.Role) (userID, workspaceID uint, ok bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return 0, 0, false
	}

	workspaceID, err = utils.GetWorkspaceID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return 0, 0, false
	}

	if _, err := workspaces.CheckAccess(db.DB, userID, workspaceID, requiredRoles...); err != nil {
		RespondError(ctx, err)
		return 0, 0, false
	}

	return userID, workspaceID, true
}

func findWorkspaceList(workspaceID, listID uint) (*models.TaskList, error) {
	var list models.TaskList

	err := db.DB.Where("id = ? AND workspace_id = ?", listID, workspaceID).First(&list).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Task list not found in this workspace")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Failed to load task list", err)
	}

	return &list, nil
}

func CreateTaskList(ctx *gin.Context) {
	var req TaskListRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task list title is required"})
		return
	}

	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	title := strings.TrimSpace(req.Title)

	if title == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task list title is required"})
		return
	}

	list := models.TaskList{Title: title, WorkspaceID: workspaceID}

	if err := db.DB.Create(&list).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to create task list", err))
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"taskList": TaskListResponse{ID: list.ID, Title: list.Title, WorkspaceID: list.WorkspaceID},
	})
}

func ListTaskLists(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	var lists []models.TaskList

	if err := db.DB.Where("workspace_id = ?", workspaceID).Order("id asc").Find(&lists).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to retrieve task lists", err))
		return
	}

	response := make([]TaskListResponse, 0, len(lists))

	for _, list := range lists {
		response = append(response, TaskListResponse{ID: list.ID, Title: list.Title, WorkspaceID: list.WorkspaceID})
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results":   len(response),
		"taskLists": response,
	})
}

func UpdateTaskList(ctx *gin.Context) {
	var req TaskListRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task list title is required"})
		return
	}

	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	listID, err := utils.GetListID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	list, err := findWorkspaceList(workspaceID, listID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	title := strings.TrimSpace(req.Title)

	if title == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task list title is required"})
		return
	}

	if err := db.DB.Model(list).Update("title", title).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to update task list", err))
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"taskList": TaskListResponse{ID: list.ID, Title: list.Title, WorkspaceID: list.WorkspaceID},
	})
}

// DeleteTaskList removes a list and its tasks. Admin only.
func DeleteTaskList(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx, models.RoleAdmin)

	if !ok {
		return
	}

	listID, err := utils.GetListID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	list, err := findWorkspaceList(workspaceID, listID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("task_list_id = ?", list.ID)

		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.TimeLog{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_list_id = ?", list.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		return tx.Delete(list).Error
	})

	if err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to delete task list", err))
		return
	}

	BroadcastRefresh(workspaceID)

	ctx.Status(http.StatusNoContent)
}
