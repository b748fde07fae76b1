package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/makehaven/chargebee-status-sync/pkg/membersync"
)

func TestLogger_Levels(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !strings.Contains(output.String(), `"level":"`+level+`"`) {
			t.Errorf("Expected %s level log to be written", level)
		}
	}
}

func TestLogger_Fields(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Info("member plan updated",
		membersync.Field{Key: "member_id", Value: "m1"},
		membersync.Field{Key: "plan_amount", Value: 1999},
	)

	got := output.String()
	if !strings.Contains(got, `"member_id":"m1"`) {
		t.Errorf("Expected member_id field in output, got %s", got)
	}
	if !strings.Contains(got, `"plan_amount":1999`) {
		t.Errorf("Expected plan_amount field in output, got %s", got)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output).Level(zerolog.WarnLevel))

	logger.Debug("debug message")
	logger.Info("info message")

	if output.Len() != 0 {
		t.Error("Expected debug and info to be filtered out")
	}

	logger.Warn("warn message")
	if output.Len() == 0 {
		t.Error("Expected warn to be logged")
	}
}
