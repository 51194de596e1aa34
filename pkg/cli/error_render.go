package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jlrickert/textpix/pkg/gateway"
	"github.com/jlrickert/textpix/pkg/record"
)

func renderUserError(err error, deps *Deps) string {
	if err == nil {
		return ""
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && !isDebugLogLevel(deps) {
		if gwErr.StatusCode != 0 {
			return fmt.Sprintf("AI service request failed (HTTP %d): %s", gwErr.StatusCode, gwErr.Message)
		}
		return "AI service request failed: " + gwErr.Message
	}

	var corrupt *record.CorruptError
	if errors.As(err, &corrupt) {
		return fmt.Sprintf("metadata file %s is unreadable", corrupt.Name)
	}

	return err.Error()
}

func isDebugLogLevel(deps *Deps) bool {
	if deps == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(deps.LogLevel), "debug")
}
