package realtime

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// StreamBoard returns a handler streaming a board's events as named SSE
// events. The subscription lives for the lifetime of the request; closing
// the connection leaves the topic.
func StreamBoard(hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		boardID := c.Param("id")
		if boardID == "" {
			return c.String(http.StatusBadRequest, "missing board id")
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		sub := hub.Subscribe(boardID)
		defer sub.Close()

		// Join acknowledgment so clients know the topic is live.
		joined, _ := sonic.Marshal(map[string]any{"ok": true, "boardId": boardID})
		if err := writeSSE(c, "joined", joined); err != nil {
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-sub.Events():
				if !ok {
					return nil
				}
				if err := writeSSE(c, string(ev.Type), ev.Data); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func writeSSE(c echo.Context, event string, data []byte) error {
	if _, err := fmt.Fprintf(c.Response(), "event: %s\n", event); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := c.Response().Write(data); err != nil {
		return err
	}
	_, err := c.Response().Write([]byte("\n\n"))
	return err
}
