package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-download-go/internal/domain"
)

type execCall struct {
	name string
	args []string
}

func recordingNotifier(cfg domain.NotificationConfig, err error) (*NotificationService, *[]execCall) {
	calls := &[]execCall{}
	n := NewNotificationService(&cfg, nil)
	n.exec = func(name string, args ...string) error {
		*calls = append(*calls, execCall{name: name, args: args})
		return err
	}
	return n, calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := recordingNotifier(domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	require.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := recordingNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifyDownloadStarted("https://youtu.be/abc", 720)

	require.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, []string{"Download Started", "Downloading 720p: https://youtu.be/abc"}, (*calls)[0].args)
}

func TestNotificationService_OSAScriptEscapesQuotes(t *testing.T) {
	n, calls := recordingNotifier(domain.NotificationConfig{Enabled: true, Method: "osascript"}, nil)

	require.NoError(t, n.Send(`say "hi"`, `a\b`))

	require.Len(t, *calls, 1)
	assert.Equal(t, "osascript", (*calls)[0].name)
	assert.Equal(t, []string{"-e", `display notification "a\\b" with title "say \"hi\""`}, (*calls)[0].args)
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := recordingNotifier(domain.NotificationConfig{Enabled: true, Method: "carrier-pigeon"}, nil)

	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestNotificationService_ExecError(t *testing.T) {
	n, _ := recordingNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, errors.New("no display"))

	assert.EqualError(t, n.Send("t", "m"), "no display")
}

func TestNotificationService_FailedIncludesKind(t *testing.T) {
	n, calls := recordingNotifier(domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifyDownloadFailed("https://youtu.be/abc", &domain.WorkerError{ExitCode: 1})

	require.Len(t, *calls, 1)
	assert.Equal(t, "Failed: https://youtu.be/abc (worker_failure)", (*calls)[0].args[1])
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}
