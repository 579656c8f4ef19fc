package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Reporter emits one JSON line per action-state transition to w, under
// CURTIN_REPORT_STACK_PREFIX, independent of the logrus stream
// (SPEC_FULL.md §A.1). A nil Reporter (prefix unset) is a silent no-op.
type Reporter struct {
	prefix string
	w      io.Writer
}

// NewReporter returns a no-op Reporter if prefix is empty, matching the
// containing installer's "only report if asked to" convention.
func NewReporter(prefix string, w io.Writer) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{prefix: prefix, w: w}
}

type reportEvent struct {
	Prefix  string `json:"prefix"`
	Event   string `json:"event_type"` // "start" or "finish"
	Name    string `json:"name"`
	Percent int    `json:"percent_complete"`
}

// Event posts one progress transition for a named action. A nil
// Reporter or one constructed with an empty prefix does nothing.
func (r *Reporter) Event(name, event string, percent int) {
	if r == nil || r.prefix == "" {
		return
	}
	line, err := json.Marshal(reportEvent{
		Prefix:  r.prefix,
		Event:   event,
		Name:    name,
		Percent: percent,
	})
	if err != nil {
		return
	}
	fmt.Fprintln(r.w, string(line))
}
