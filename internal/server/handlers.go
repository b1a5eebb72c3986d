package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"taskboard/internal/model"
	"taskboard/internal/store"
)

const maxBodySize = 64 << 10

var validate = validator.New()

// Register wires the API routes on e. auth and faults may be nil.
func Register(e *echo.Echo, repo store.Repository, auth *Auth, faults *Faults, log logrus.FieldLogger) {
	e.GET("/healthz", healthz(repo))

	g := e.Group("/api/v1")
	if auth != nil {
		g.Use(auth.Middleware())
	}
	g.GET("/tasks", listTasks(repo, log))
	g.POST("/tasks", createTask(repo, log))
	if faults != nil {
		g.PUT("/tasks/:id/update", updateTask(repo, log), faults.Middleware(log))
	} else {
		g.PUT("/tasks/:id/update", updateTask(repo, log))
	}
	g.DELETE("/tasks/:id", deleteTask(repo, log))
}

type tasksResponse struct {
	Tasks []model.Task `json:"tasks"`
}

type taskResponse struct {
	Task model.Task `json:"task"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=10000"`
	Status      string     `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeID  string     `json:"assigneeId" validate:"max=100"`
	ProjectID   string     `json:"projectId" validate:"max=100"`
}

type updateTaskRequest struct {
	Status string `json:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
}

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorResponse{Error: msg})
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthz(repo store.Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p, ok := repo.(pinger); ok {
			if err := p.Ping(c.Request().Context()); err != nil {
				return jsonError(c, http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

func listTasks(repo store.Repository, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := repo.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("projectId")))
		if err != nil {
			log.WithError(err).Error("list tasks")
			return jsonError(c, http.StatusInternalServerError, "failed to list tasks")
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func createTask(repo store.Repository, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		req.Title = strings.TrimSpace(req.Title)
		if err := validate.Struct(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, validationMessage(err))
		}
		t, err := repo.Create(c.Request().Context(), store.NewTask{
			Title:       req.Title,
			Description: req.Description,
			Status:      model.Bucket(req.Status),
			Priority:    model.Priority(req.Priority),
			DueDate:     req.DueDate,
			AssigneeID:  req.AssigneeID,
			ProjectID:   req.ProjectID,
		})
		if err != nil {
			log.WithError(err).Error("create task")
			return jsonError(c, http.StatusInternalServerError, "failed to create task")
		}
		log.WithField("task", t.ID).Info("task created")
		return c.JSON(http.StatusCreated, taskResponse{Task: t})
	}
}

func updateTask(repo store.Repository, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}
		if b, ok := model.ParseBucket(req.Status); ok {
			req.Status = string(b)
		}
		if err := validate.Struct(&req); err != nil {
			return jsonError(c, http.StatusBadRequest, validationMessage(err))
		}
		t, err := repo.UpdateBucket(c.Request().Context(), id, model.Bucket(req.Status))
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "task not found")
		}
		if err != nil {
			log.WithError(err).WithField("task", id).Error("update task")
			return jsonError(c, http.StatusInternalServerError, "failed to update task")
		}
		log.WithFields(logrus.Fields{"task": id, "bucket": req.Status}).Info("task moved")
		return c.JSON(http.StatusOK, taskResponse{Task: t})
	}
}

func deleteTask(repo store.Repository, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		err := repo.Delete(c.Request().Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "task not found")
		}
		if err != nil {
			log.WithError(err).WithField("task", id).Error("delete task")
			return jsonError(c, http.StatusInternalServerError, "failed to delete task")
		}
		log.WithField("task", id).Info("task deleted")
		return c.NoContent(http.StatusNoContent)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}
