package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// websocketURL turns the server's http(s) base URL into the progress
// WebSocket endpoint.
func websocketURL(base, session string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path += "/youtube/progress/ws"
	if session != "" {
		u.RawQuery = url.Values{"session": {session}}.Encode()
	}
	return u.String(), nil
}

// followProgress prints each progress record until the server ends the stream
func followProgress(base, session string, out io.Writer) error {
	wsURL, err := websocketURL(base, session)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to progress stream: %w", err)
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}

		var record domain.ProgressRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		fmt.Fprintln(out, formatRecord(record))
	}
}

// formatRecord renders one record as a single status line
func formatRecord(r domain.ProgressRecord) string {
	switch {
	case r.IsFailure():
		return "failed: " + r.Error
	case r.IsSuccess() && r.Filename != "":
		return fmt.Sprintf("%s: %s", r.Status, r.Filename)
	case r.IsSuccess():
		return r.Status
	default:
		return fmt.Sprintf("%5.1f%% %s", r.Percent(), progressBar(r.Percent(), 30))
	}
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// descriptorRow picks display columns from a worker resolution descriptor,
// accepting both itag/resolution and id/height spellings.
func descriptorRow(d map[string]interface{}) (id, height, ext string) {
	return firstField(d, "itag", "format_id", "id"),
		firstField(d, "resolution", "height"),
		firstField(d, "ext")
}

func firstField(d map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := d[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return "-"
}

// responseError formats an error body returned by the server
func responseError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return fmt.Errorf("server returned %d: %s", status, strings.TrimSpace(string(body)))
	}
	if payload.Kind != "" {
		return fmt.Errorf("%s (%s)", payload.Error, payload.Kind)
	}
	return errors.New(payload.Error)
}
