package engine

import (
	"context"
	"fmt"

	"github.com/ymiyake/murmur/internal/ipc"
)

// Handler exposes the engine over the control socket. Stop and mute
// requests travel through the same queue as gesture commands so ordering
// against in-flight gestures is preserved.
func (e *Engine) Handler() ipc.Handler {
	return ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case "status":
			state, muted := e.Status()
			return ipc.Response{OK: true, State: state, Muted: muted}
		case "stop":
			e.RequestStop()
			return ipc.Response{OK: true, Message: "stop requested"}
		case "cancel":
			e.RequestCancel()
			return ipc.Response{OK: true, Message: "cancel requested"}
		case "mute":
			e.RequestToggleMute()
			return ipc.Response{OK: true, Message: "mute toggle requested"}
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
		}
	})
}
