package actorutil

import (
	"github.com/berfenger/energymon/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

type forRequest struct {
	req domain.ActorRequest
}

type ExtendedRequest interface {
	Respond(ctx actor.Context, resp domain.ActorResponse)
	ReplyTo(ctx actor.Context) *actor.PID
}

// ForRequest resolves where the response to r goes.
func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return forRequest{req: r}
}

func (r forRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if pid := r.req.ReplyTo(); pid != nil {
		ctx.Send(pid, resp)
		return
	}
	ctx.Respond(resp)
}

func (r forRequest) ReplyTo(ctx actor.Context) *actor.PID {
	if pid := r.req.ReplyTo(); pid != nil {
		return pid
	}
	return ctx.Sender()
}
