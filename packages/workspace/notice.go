package workspace

import (
	"fmt"
	"time"
)

// DefaultNoticeTTL is how long a status notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a transient status message. Seq increases with every notice
// raised, so repeated identical messages can be told apart.
type Notice struct {
	Seq     uint64
	Level   Level
	Message string
}

// notify replaces the current notice and schedules it to clear. A later
// notice is never cleared by an earlier one's timer.
func (w *Workspace) notify(level Level, format string, args ...any) {
	seq := w.noticeEpoch.next()
	w.state.notice = &Notice{Seq: seq, Level: level, Message: fmt.Sprintf(format, args...)}
	if w.noticeTTL <= 0 {
		return
	}
	time.AfterFunc(w.noticeTTL, func() {
		w.enqueue(task{fn: func() {
			if w.noticeEpoch.current(seq) {
				w.state.notice = nil
			}
		}})
	})
}

// fail reports a failed backend call as an error notice.
func (w *Workspace) fail(msg string, err error) {
	w.warn("%s: %v", msg, err)
	w.notify(LevelError, "%s: %v", msg, err)
}
