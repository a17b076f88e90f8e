package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
	"kanban-api/export"
	"kanban-api/realtime"
	"kanban-api/service"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Deps carries everything Register wires into routes.
type Deps struct {
	Boards  *service.Boards
	Columns *service.Columns
	Tasks   *service.Tasks
	Exports *export.Service
	Hub     *realtime.Hub
	Logger  *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.POST("/api/boards", createBoard(d))
	e.GET("/api/boards", listBoards(d))
	e.GET("/api/boards/:id", getBoard(d))
	e.PATCH("/api/boards/:id", updateBoard(d))
	e.DELETE("/api/boards/:id", deleteBoard(d))
	e.GET("/api/boards/:id/summary", boardSummary(d))
	e.GET("/api/boards/:id/columns", listColumns(d))
	e.GET("/api/boards/:id/tasks", listBoardTasks(d))
	e.GET("/api/boards/:id/events", realtime.StreamBoard(d.Hub))

	e.POST("/api/columns", createColumn(d))
	e.PATCH("/api/columns/:id", updateColumn(d))
	e.DELETE("/api/columns/:id", deleteColumn(d))
	e.GET("/api/columns/:id/tasks", listColumnTasks(d))

	e.POST("/api/tasks", createTask(d))
	e.PATCH("/api/tasks/:id", updateTask(d))
	e.PATCH("/api/tasks/:id/move", moveTask(d))
	e.DELETE("/api/tasks/:id", deleteTask(d))

	e.POST("/api/export/backlog", requestExport(d))
	e.GET("/api/export/backlog/:id", exportStatus(d))
	e.POST("/api/export/backlog/status", reportExportStatus(d))

	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// decode reads a bounded request body with strict field checking.
func decode(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return nil
}

// fail maps domain errors onto HTTP status codes.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errBody(err))
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errBody(err))
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errBody(err))
	case errors.Is(err, domain.ErrDelegation):
		return c.JSON(http.StatusBadGateway, errBody(err))
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func createBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in service.CreateBoard
		if err := decode(c, &in); err != nil {
			return err
		}
		b, err := d.Boards.Create(c.Request().Context(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, b)
	}
}

func listBoards(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		boards, err := d.Boards.List(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, boards)
	}
}

func getBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := d.Boards.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

func updateBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in service.UpdateBoard
		if err := decode(c, &in); err != nil {
			return err
		}
		b, err := d.Boards.Update(c.Request().Context(), c.Param("id"), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

func deleteBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Boards.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func boardSummary(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics, spanCtx := newSummaryRequestMetrics(c.Request().Context(), d.Logger)
		c.SetRequest(c.Request().WithContext(spanCtx))

		var opErr error
		defer func() {
			metrics.Log(c.Response().Status, opErr)
		}()

		fetchStart := time.Now()
		sum, err := d.Boards.Summary(spanCtx, c.Param("id"))
		metrics.ObserveFetch(time.Since(fetchStart))
		if err != nil {
			metrics.SetErrorStage("fetch")
			opErr = err
			return fail(c, err)
		}
		metrics.SetColumnsReturned(len(sum.Columns))
		metrics.SetTasksCounted(sum.TotalTasks)

		encodeStart := time.Now()
		writeErr := c.JSON(http.StatusOK, sum)
		metrics.ObserveEncode(time.Since(encodeStart))
		if writeErr != nil {
			metrics.SetErrorStage("encode_response")
			opErr = writeErr
		}
		return writeErr
	}
}

func listColumns(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		cols, err := d.Columns.ListByBoard(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, cols)
	}
}

func createColumn(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in service.CreateColumn
		if err := decode(c, &in); err != nil {
			return err
		}
		col, err := d.Columns.Create(c.Request().Context(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, col)
	}
}

type columnUpdateBody struct {
	Title    *string  `json:"title"`
	Position *float64 `json:"position"`
}

func updateColumn(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in columnUpdateBody
		if err := decode(c, &in); err != nil {
			return err
		}
		col, err := d.Columns.Update(c.Request().Context(), c.Param("id"),
			domain.ColumnUpdate{Title: in.Title, Position: in.Position})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, col)
	}
}

func deleteColumn(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Columns.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func listBoardTasks(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := d.Tasks.ListByBoard(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func listColumnTasks(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := d.Tasks.ListByColumn(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in service.CreateTask
		if err := decode(c, &in); err != nil {
			return err
		}
		t, err := d.Tasks.Create(c.Request().Context(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

type taskUpdateBody struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Assignee    *string  `json:"assignee"`
	Position    *float64 `json:"position"`
}

func updateTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in taskUpdateBody
		if err := decode(c, &in); err != nil {
			return err
		}
		t, err := d.Tasks.Update(c.Request().Context(), c.Param("id"), domain.TaskUpdate{
			Title:       in.Title,
			Description: in.Description,
			Assignee:    in.Assignee,
			Position:    in.Position,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func moveTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in service.MoveTask
		if err := decode(c, &in); err != nil {
			return err
		}
		t, err := d.Tasks.Move(c.Request().Context(), c.Param("id"), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Tasks.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func requestExport(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in export.RequestInput
		if err := decode(c, &in); err != nil {
			return err
		}
		snap, err := d.Exports.Request(c.Request().Context(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusAccepted, snap)
	}
}

func exportStatus(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap, err := d.Exports.Status(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, snap)
	}
}

func reportExportStatus(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Exports.ValidateToken(c.Request().Header.Get("x-export-token")); err != nil {
			return fail(c, err)
		}
		var in export.StatusReport
		if err := decode(c, &in); err != nil {
			return err
		}
		snap, err := d.Exports.HandleStatus(in)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusAccepted, snap)
	}
}
