package script

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/codefionn/selenai/internal/consts"
)

// NoWritesPreview is reported when a dry run records no write intent.
const NoWritesPreview = "No write operations detected in script."

// Preview evaluates source in a scratch interpreter whose write-capable
// functions only record what they would do. The shared interpreter is not
// touched, so globals defined by earlier invocations are not visible.
func (r *Runtime) Preview(ctx context.Context, source string) string {
	if err := validateSource(source); err != nil {
		return "Preview failed: " + err.Error()
	}

	gate := &atomic.Bool{}
	gate.Store(true)
	h := r.newHost(true, gate)
	defer h.retire()
	i, err := newInterpreter(h)
	if err != nil {
		return "Preview failed: " + err.Error()
	}

	_, out, err := r.evaluate(ctx, i, h, source)

	lines := out.preview
	if len(lines) > consts.MaxPreviewLines {
		extra := len(lines) - consts.MaxPreviewLines
		lines = append(lines[:consts.MaxPreviewLines:consts.MaxPreviewLines], fmt.Sprintf("... and %d more", extra))
	}
	var sb strings.Builder
	if len(lines) == 0 {
		sb.WriteString(NoWritesPreview)
	} else {
		sb.WriteString(strings.Join(lines, "\n"))
	}
	if err != nil {
		sb.WriteString("\nPreview stopped early: ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}
