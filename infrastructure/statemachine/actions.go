package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// syncState keeps Context.Current aligned with the entered state.
// In statekit, actions receive a pointer to the context. Since our context
// is *Context, actions receive **Context.
func syncState(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	if to := targetState(event); to != "" {
		(*ctx).Current = to
	}
}

// recordTransition appends the transition and captures failure details.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	to := targetState(event)
	tr := Transition{
		From: c.Current,
		To:   to,
		At:   time.Now(),
	}

	if payload, ok := event.Payload.(TransitionPayload); ok {
		tr.Reason = payload.Reason
		if to == artifact.StateFailed {
			c.FailedFrom = c.Current
			c.Cause = payload.Err
			c.FailureKind = artifact.ClassifyError(payload.Err)
		}
	}

	c.Transitions = append(c.Transitions, tr)
	c.Current = to

	if c.OnTransition != nil {
		c.OnTransition(tr)
	}
}
