package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/collabrium-dev/collabrium/db"
	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/collabrium-dev/collabrium/internal/models"
	"github.com/collabrium-dev/collabrium/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title        string     `json:"title" binding:"required,max=255"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Tags         []string   `json:"tags"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID *uint      `json:"assigned_to_id"`
}

type UpdateTaskRequest struct {
	Title        *string    `json:"title" binding:"omitempty,max=255"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status" binding:"omitempty,oneof=todo in_progress done"`
	Priority     *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	Tags         *[]string  `json:"tags"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID *uint      `json:"assigned_to_id"`
}

type TaskResponse struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Tags         []string   `json:"tags"`
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	TaskListID   uint       `json:"task_list_id"`
	CreatedByID  uint       `json:"created_by_id"`
	AssignedToID *uint      `json:"assigned_to_id"`
}

func taskResponse(task models.Task) TaskResponse {
	var tags []string

	if len(task.Tags) > 0 {
		// Ignore malformed rows rather than failing the whole response.
		_ = json.Unmarshal(task.Tags, &tags)
	}

	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		Priority:     task.Priority,
		Tags:         tags,
		DueDate:      task.DueDate,
		CompletedAt:  task.CompletedAt,
		TaskListID:   task.TaskListID,
		CreatedByID:  task.CreatedByID,
		AssignedToID: task.AssignedToID,
	}
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}

	raw, err := json.Marshal(tags)

	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid tags", err)
	}

	return datatypes.JSON(raw), nil
}

// findWorkspaceTask loads a task only if it belongs to a list of the given
// workspace, so a task ID from another tenant resolves to not-found.
func findWorkspaceTask(workspaceID, taskID uint) (*models.Task, error) {
	var task models.Task

	err := db.DB.
		Joins("JOIN task_lists ON task_lists.id = tasks.task_list_id AND task_lists.deleted_at IS NULL").
		Where("tasks.id = ? AND task_lists.workspace_id = ?", taskID, workspaceID).
		First(&task).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Task not found in this workspace")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Failed to load task", err)
	}

	return &task, nil
}

func CreateTask(ctx *gin.Context) {
	var req CreateTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": err.Error()})
		return
	}

	userID, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	listID, err := utils.GetListID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	if _, err := findWorkspaceList(workspaceID, listID); err != nil {
		RespondError(ctx, err)
		return
	}

	priority := req.Priority

	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	tags, err := encodeTags(req.Tags)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	task := models.Task{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Status:       models.TaskStatusTodo,
		Priority:     priority,
		Tags:         tags,
		DueDate:      req.DueDate,
		TaskListID:   listID,
		CreatedByID:  userID,
		AssignedToID: req.AssignedToID,
	}

	if task.Title == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task title is required"})
		return
	}

	if err := db.DB.Create(&task).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to create task", err))
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusCreated, gin.H{"task": taskResponse(task)})
}

func ListTasks(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	listID, err := utils.GetListID(ctx)

	if err != nil {
		RespondError(ctx, apperr.New(apperr.Validation, err.Error()))
		return
	}

	if _, err := findWorkspaceList(workspaceID, listID); err != nil {
		RespondError(ctx, err)
		return
	}

	var tasks []models.Task

	if err := db.DB.Where("task_list_id = ?", listID).Order("id asc").Find(&tasks).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to retrieve tasks", err))
		return
	}

	response := make([]TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, taskResponse(task))
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results": len(response),
		"tasks":   response,
	})
}

func GetTask(ctx *gin.Context) {
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

	RespondSuccess(ctx, http.StatusOK, gin.H{"task": taskResponse(*task)})
}

func UpdateTask(ctx *gin.Context) {
	var req UpdateTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": err.Error()})
		return
	}

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

	updates := make(map[string]interface{})

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)

		if title == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "Task title cannot be empty"})
			return
		}

		updates["title"] = title
	}

	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if req.Status != nil && *req.Status != task.Status {
		updates["status"] = *req.Status

		// Moving into done stamps the completion time; moving out clears it.
		if *req.Status == models.TaskStatusDone {
			now := time.Now()
			updates["completed_at"] = &now
		} else {
			updates["completed_at"] = gorm.Expr("NULL")
		}
	}

	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}

	if req.Tags != nil {
		tags, err := encodeTags(*req.Tags)

		if err != nil {
			RespondError(ctx, err)
			return
		}

		updates["tags"] = tags
	}

	if req.DueDate != nil {
		updates["due_date"] = req.DueDate
	}

	if req.AssignedToID != nil {
		updates["assigned_to_id"] = req.AssignedToID
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(task).Updates(updates).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to update task", err))
		return
	}

	if err := db.DB.First(task, task.ID).Error; err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to reload task", err))
		return
	}

	BroadcastRefresh(workspaceID)

	RespondSuccess(ctx, http.StatusOK, gin.H{"task": taskResponse(*task)})
}

func DeleteTask(ctx *gin.Context) {
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

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TimeLog{}).Error; err != nil {
			return err
		}

		return tx.Delete(task).Error
	})

	if err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to delete task", err))
		return
	}

	BroadcastRefresh(workspaceID)

	ctx.Status(http.StatusNoContent)
}

func SearchTasks(ctx *gin.Context) {
	_, workspaceID, ok := gateWorkspace(ctx)

	if !ok {
		return
	}

	query := strings.TrimSpace(ctx.Query("q"))

	if query == "" {
		RespondError(ctx, apperr.New(apperr.Validation, "Search query cannot be empty or contain only whitespace"))
		return
	}

	if utf8.RuneCountInString(query) < 2 {
		RespondError(ctx, apperr.New(apperr.Validation, "Search query must be at least 2 characters"))
		return
	}

	if utf8.RuneCountInString(query) > 50 {
		RespondError(ctx, apperr.New(apperr.Validation, "Search query must not exceed 50 characters"))
		return
	}

	var tasks []models.Task

	err := db.DB.
		Joins("JOIN task_lists ON task_lists.id = tasks.task_list_id AND task_lists.deleted_at IS NULL").
		Where("task_lists.workspace_id = ? AND LOWER(tasks.title) LIKE ?", workspaceID, "%"+strings.ToLower(query)+"%").
		Order("tasks.id asc").
		Find(&tasks).Error

	if err != nil {
		RespondError(ctx, apperr.Wrap(apperr.Persistence, "Failed to search tasks", err))
		return
	}

	response := make([]TaskResponse, 0, len(tasks))

	for _, task := range tasks {
		response = append(response, taskResponse(task))
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results": len(response),
		"tasks":   response,
	})
}
