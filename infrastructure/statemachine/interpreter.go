package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToState artifact.State
	Reason  string
	Err     error
}

// Interpreter wraps the statekit interpreter for one pipeline execution.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the pipeline state machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	if ctx == nil {
		ctx = NewContext()
	}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Current = artifact.State(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() artifact.State {
	return StateFromMachine(i.interp.State().Value)
}

// Advance moves to the next stage of the success path.
func (i *Interpreter) Advance(reason string) error {
	from := i.State()
	to := from.Next()
	if to == "" {
		return fmt.Errorf("no successor for state %s", from)
	}
	return i.send(to, TransitionPayload{ToState: to, Reason: reason})
}

// Fail moves to the failed state, recording cause.
func (i *Interpreter) Fail(cause error) error {
	if cause == nil {
		return fmt.Errorf("failing from %s requires a cause", i.State())
	}
	return i.send(artifact.StateFailed, TransitionPayload{
		ToState: artifact.StateFailed,
		Reason:  cause.Error(),
		Err:     cause,
	})
}

func (i *Interpreter) send(to artifact.State, payload TransitionPayload) error {
	from := i.State()
	i.interp.Send(statekit.Event{
		Type:    EventForTransition(to),
		Payload: payload,
	})
	if got := i.State(); got != to {
		return fmt.Errorf("transition from %s to %s not allowed", from, to)
	}
	i.ctx.Current = to
	return nil
}

// IsTerminal returns true if the interpreter is in a terminal state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(state artifact.State) bool {
	return i.interp.Matches(statekit.StateID(state))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
