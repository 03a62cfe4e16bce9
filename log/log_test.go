// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLoggerFollowsInit(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(LevelInfo)
	Init(&buf, &level, true, false)

	logger.Debug("hidden")
	logger.With("currency", "DOT").Info("bonded", "amount", 100)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "bonded", rec["msg"])
	assert.Equal(t, "test", rec["pkg"])
	assert.Equal(t, "DOT", rec["currency"])
	assert.Equal(t, float64(100), rec["amount"])

	buf.Reset()
	level.Set(LevelDebug)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestTerminalHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(LevelWarn)
	Init(&buf, &level, false, false)

	logger := WithContext("pkg", "test")
	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "k=v")
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, LevelDebug, lvl)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)

	assert.Equal(t, LevelInfo, FromVerbosity(3))
	assert.Equal(t, LevelTrace, FromVerbosity(9))
	assert.Equal(t, LevelCrit, FromVerbosity(0))
}
