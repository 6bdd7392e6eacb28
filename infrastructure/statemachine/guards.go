package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// guardIsSuccessor allows only the next stage of the success path.
// Guards receive the context by value. Since our context is *Context, the
// guard receives *Context directly.
func guardIsSuccessor(ctx *Context, event statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.Current.Next() == targetState(event)
}

// guardHasCause requires a failure to carry the error that caused it.
func guardHasCause(_ *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(TransitionPayload)
	return ok && payload.Err != nil
}

// targetState returns the state an event leads to.
func targetState(event statekit.Event) artifact.State {
	if payload, ok := event.Payload.(TransitionPayload); ok && payload.ToState != "" {
		return payload.ToState
	}
	return stateFromEventType(event.Type)
}

// stateFromEventType derives the target state from an event type.
func stateFromEventType(eventType statekit.EventType) artifact.State {
	switch eventType {
	case EventValidate:
		return artifact.StateValidating
	case EventArchive:
		return artifact.StateArchiving
	case EventUpload:
		return artifact.StateUploading
	case EventDone:
		return artifact.StateDone
	case EventFail:
		return artifact.StateFailed
	default:
		return artifact.State(eventType)
	}
}
