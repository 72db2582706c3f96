package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRequestMixIn lets a request name the actor that gets the response.
// Without it the response goes to the sender.
type ActorRequestMixIn struct {
	ReplyToPID *actor.PID
}

type ActorRequest interface {
	ReplyTo() *actor.PID
}

func (r ActorRequestMixIn) ReplyTo() *actor.PID {
	return r.ReplyToPID
}

// ActorResponseMixIn carries the error of a failed request, if any.
type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}
