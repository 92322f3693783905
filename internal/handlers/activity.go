package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/collabrium-dev/collabrium/db"
	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/models"
	"github.com/collabrium-dev/collabrium/internal/utils"
	"github.com/collabrium-dev/collabrium/internal/workspaces"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID          uint      `json:"id"`
	TaskID      uint      `json:"task_id"`
	UserID      uint      `json:"user_id"`
	DisplayName string    `json:"displayname"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateTimeLogRequest struct {
	WorkDate time.Time `json:"work_date" binding:"required"`
	Seconds  int       `json:"seconds" binding:"required,gt=0"`
}

type TimeLogResponse struct {
	ID       uint      `json:"id"`
	TaskID   uint      `json:"task_id"`
	UserID   uint      `json:"user_id"`
	WorkDate time.Time `json:"work_date"`
	Seconds  int       `json:"seconds"`
}

func CreateComment(ctx *gin.Context) {
	var req CreateCommentRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Comment content is required"})
		return
	}

	userID, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	task, err := findWorkspaceTask(workspaceID, taskID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	content := strings.TrimSpace(req.Content)

	if content == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Comment content is required"})
		return
	}

	comment := models.Comment{TaskID: task.ID, UserID: userID, Content: content}

	if err := db.DB.Create(&comment).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to create comment", err))
		return
	}

	BroadcastRefresh(workspaceID)

	currentUser, _ := utils.GetCurrentUser(ctx)

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"comment": CommentResponse{
			ID:          comment.ID,
			TaskID:      comment.TaskID,
			UserID:      comment.UserID,
			DisplayName: currentUser.DisplayName,
			Content:     comment.Content,
			CreatedAt:   comment.CreatedAt,
		},
	})
}

func ListComments(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	task, err := findWorkspaceTask(workspaceID, taskID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	var comments []CommentResponse

	err = db.DB.Model(&models.Comment{}).
		Select("comments.id, comments.task_id, comments.user_id, users.display_name, comments.content, comments.created_at").
		Joins("JOIN users ON users.id = comments.user_id AND users.deleted_at IS NULL").
		Where("comments.task_id = ?", task.ID).
		Order("comments.id asc").
		Scan(&comments).Error

	if err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to retrieve comments", err))
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results":  len(comments),
		"comments": comments,
	})
}

// DeleteComment removes the caller's own comment; admins may remove any
// comment in their workspace.
func DeleteComment(ctx *gin.Context) {
	userID, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	commentID, err := utils.GetCommentID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	var comment models.Comment

	err = db.DB.
		Joins("JOIN tasks ON tasks.id = comments.task_id AND tasks.deleted_at IS NULL").
		Joins("JOIN task_lists ON task_lists.id = tasks.task_list_id AND task_lists.deleted_at IS NULL").
		Where("comments.id = ? AND task_lists.workspace_id = ?", commentID, workspaceID).
		First(&comment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(ctx, apperr.New(apperr.NotFound, "Comment not found in this workspace"))
		} else {
			RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to load comment", err))
		}
		return
	}

	if comment.UserID != userID {
		if _, err := workspaces.CheckAccess(db.DB, userID, workspaceID, models.RoleAdmin); err != nil {
			RespondError(ctx, err)
			return
		}
	}

	if err := db.DB.Delete(&comment).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to delete comment", err))
		return
	}

	BroadcastRefresh(workspaceID)

	ctx.Status(http.StatusNoContent)
}

func CreateTimeLog(ctx *gin.Context) {
	var req CreateTimeLogRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Work date and a positive time spent are required"})
		return
	}

	userID, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	task, err := findWorkspaceTask(workspaceID, taskID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	timeLog := models.TimeLog{
		TaskID:   task.ID,
		UserID:   userID,
		WorkDate: req.WorkDate,
		Seconds:  req.Seconds,
	}

	if err := db.DB.Create(&timeLog).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to create time log", err))
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"timeLog": TimeLogResponse{
			ID:       timeLog.ID,
			TaskID:   timeLog.TaskID,
			UserID:   timeLog.UserID,
			WorkDate: timeLog.WorkDate,
			Seconds:  timeLog.Seconds,
		},
	})
}

func ListTimeLogs(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	task, err := findWorkspaceTask(workspaceID, taskID)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	var timeLogs []models.TimeLog

	if err := db.DB.Where("task_id = ?", task.ID).Order("work_date asc").Find(&timeLogs).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to retrieve time logs", err))
		return
	}

	response := make([]TimeLogResponse, 0, len(timeLogs))
	total := 0

	for _, timeLog := range timeLogs {
		total += timeLog.Seconds
		response = append(response, TimeLogResponse{
			ID:       timeLog.ID,
			TaskID:   timeLog.TaskID,
			UserID:   timeLog.UserID,
			WorkDate: timeLog.WorkDate,
			Seconds:  timeLog.Seconds,
		})
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results":       len(response),
		"total_seconds": total,
		"timeLogs":      response,
	})
}
