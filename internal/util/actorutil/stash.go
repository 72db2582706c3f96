package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor cannot handle in its current behavior, with
// their original sender. With MaxLen > 0 the oldest message is dropped once
// the stash is full.
type Stash struct {
	MaxLen int
	stash  []stashElem
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

// Stash keeps msg and returns the message dropped to make room, if any.
func (stash *Stash) Stash(ctx actor.Context, msg any) (dropped any) {
	if stash.MaxLen > 0 && len(stash.stash) >= stash.MaxLen {
		dropped = stash.stash[0].msg
		stash.stash = stash.stash[1:]
	}
	stash.stash = append(stash.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
	return dropped
}

func (stash *Stash) Len() int {
	return len(stash.stash)
}

// UnstashAll re-enqueues every stashed message in arrival order.
func (stash *Stash) UnstashAll(ctx actor.Context) {
	for _, elem := range stash.stash {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
	stash.stash = nil
}
