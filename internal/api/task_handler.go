package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskpulse/internal/model"
	"taskpulse/internal/service"
)

type TaskHandler struct {
	tasks      *service.TaskService
	categories *service.CategoryService
}

func NewTaskHandler(tasks *service.TaskService, categories *service.CategoryService) *TaskHandler {
	return &TaskHandler{tasks: tasks, categories: categories}
}

// taskView adds derived fields to a stored task.
type taskView struct {
	model.Task
	IsOverdue bool `json:"isOverdue"`
}

func (h *TaskHandler) view(t *model.Task) taskView {
	return taskView{Task: *t, IsOverdue: t.IsOverdue(h.tasks.Now())}
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Recurrence  string     `json:"recurrence"`
}

type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Priority    *string         `json:"priority"`
	Status      *string         `json:"status"`
	Recurrence  *string         `json:"recurrence"`
	DueDate     json.RawMessage `json:"dueDate"`
}

func (r updateTaskRequest) patch() (service.TaskPatch, error) {
	p := service.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Status:      r.Status,
		Recurrence:  r.Recurrence,
	}
	switch raw := bytes.TrimSpace(r.DueDate); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		p.ClearDue = true
	default:
		var due time.Time
		if err := json.Unmarshal(raw, &due); err != nil {
			return p, badRequest("dueDate must be an RFC 3339 timestamp or null")
		}
		p.DueDate = &due
	}
	return p, nil
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), currentUser(c), service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Recurrence:  req.Recurrence,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": h.view(task)})
}

// Parse creates a task from free text.
func (h *TaskHandler) Parse(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	task, err := h.tasks.CreateFromText(c.Request.Context(), currentUser(c), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": h.view(task)})
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context(), currentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, h.view(&tasks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(views), "data": views})
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.GetTask(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.view(task)})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest("invalid request body"))
		return
	}
	patch, err := req.patch()
	if err != nil {
		_ = c.Error(err)
		return
	}
	task, err := h.tasks.UpdateTask(c.Request.Context(), currentUser(c), c.Param("id"), patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.view(task)})
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		_ = c.Error(badRequest("status is required"))
		return
	}
	task, err := h.tasks.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("id"), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task status updated", "data": h.view(task)})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.DeleteTask(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
}

func (h *TaskHandler) DeleteCompleted(c *gin.Context) {
	n, err := h.tasks.DeleteCompleted(c.Request.Context(), currentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("%d completed tasks deleted", n),
		"deletedCount": n,
	})
}

func (h *TaskHandler) Categories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), currentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": categories})
}
