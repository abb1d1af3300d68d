package testlog

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestCaptureLogger(t *testing.T) {
	lgr, logs := CaptureLogger(t, log.LevelInfo)
	child := lgr.New("migration", "DoggyProjectsV1")

	child.Info("migration complete", "id", 1)
	lgr.Debug("below level")
	lgr.Warn("proxy reused")

	rec := logs.FindLog(NewMessageFilter("migration complete"))
	require.NotNil(t, rec)
	v, ok := rec.AttrValue("migration")
	require.True(t, ok)
	require.Equal(t, "DoggyProjectsV1", v)

	require.Nil(t, logs.FindLog(NewMessageFilter("below level")))
	require.Len(t, logs.FindLogs(NewLevelFilter(log.LevelWarn)), 1)
	require.NotNil(t, logs.FindLog(NewAttributesFilter("id", "1")))

	logs.Clear()
	require.Empty(t, logs.FindLogs())
}
