package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatKeys(t *testing.T) {
	assert.Equal(t, "presence:alice", FormatPresenceKey("alice"))
	assert.Equal(t, "game:game_1:summary", FormatGameSummaryKey("game_1"))
}
