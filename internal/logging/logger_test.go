package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(&Config{
		LogDir:     t.TempDir(),
		Level:      LevelInfo,
		MaxHistory: 10,
		Console:    false,
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestReconfigure_AppliesLevel(t *testing.T) {
	l := newTestLogger(t)

	l.Reconfigure(LevelDebug, false)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	l.Reconfigure(LevelWarn, false)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	// unknown levels fall back to info rather than going silent
	l.Reconfigure(LogLevel("nonsense"), false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetOnLog_ForwardsEntries(t *testing.T) {
	l := newTestLogger(t)

	var got []Entry
	l.SetOnLog(func(e Entry) { got = append(got, e) })

	l.Info("session", "State changed", map[string]interface{}{"state": "live"})

	require.Len(t, got, 1)
	assert.Equal(t, "info", got[0].Level)
	assert.Equal(t, "session", got[0].Component)
	assert.Equal(t, "State changed", got[0].Message)
	assert.Contains(t, got[0].Data, "state=live")

	l.SetOnLog(nil)
	l.Info("session", "quiet", nil)
	assert.Len(t, got, 1)
}

func TestHistory_KeepsNewestEntries(t *testing.T) {
	l := newTestLogger(t)

	for i := 0; i < 15; i++ {
		l.Info("main", "tick", map[string]interface{}{"i": i})
	}

	all := l.History(0)
	require.Len(t, all, 10, "history is capped")
	assert.Contains(t, all[len(all)-1].Data, "i=14", "newest entry is last")

	recent := l.History(3)
	require.Len(t, recent, 3)
	assert.Contains(t, recent[0].Data, "i=12")
}

func TestLogPath_PointsIntoLogDir(t *testing.T) {
	dir := t.TempDir()
	l, err := New(&Config{LogDir: dir, MaxHistory: 5})
	require.NoError(t, err)
	defer l.Close()

	assert.Contains(t, l.LogPath(), dir)
	assert.Contains(t, l.LogPath(), "avatarcast_")
}
