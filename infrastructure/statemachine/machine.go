// Package statemachine provides the statekit integration for the upload
// pipeline.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
)

// Transition is a recorded state change.
type Transition struct {
	From   artifact.State
	To     artifact.State
	Reason string
	At     time.Time
}

// Context carries pipeline progress through the state machine.
type Context struct {
	Current     artifact.State
	Transitions []Transition

	// FailedFrom is the stage that was active when the pipeline failed.
	FailedFrom artifact.State

	// FailureKind and Cause are set when the pipeline enters failed.
	FailureKind artifact.ErrorKind
	Cause       error

	// OnTransition, when set, observes every recorded transition.
	OnTransition func(Transition)
}

// NewContext creates a new machine context.
func NewContext() *Context {
	return &Context{Current: artifact.StateIdle}
}

// State IDs as StateID type for statekit.
const (
	stateIdle       statekit.StateID = statekit.StateID(artifact.StateIdle)
	stateValidating statekit.StateID = statekit.StateID(artifact.StateValidating)
	stateArchiving  statekit.StateID = statekit.StateID(artifact.StateArchiving)
	stateUploading  statekit.StateID = statekit.StateID(artifact.StateUploading)
	stateDone       statekit.StateID = statekit.StateID(artifact.StateDone)
	stateFailed     statekit.StateID = statekit.StateID(artifact.StateFailed)
)

// Event types.
const (
	EventValidate statekit.EventType = "VALIDATE"
	EventArchive  statekit.EventType = "ARCHIVE"
	EventUpload   statekit.EventType = "UPLOAD"
	EventDone     statekit.EventType = "DONE"
	EventFail     statekit.EventType = "FAIL"
)

// NewPipelineMachine creates the upload pipeline statechart:
// idle → validating → archiving → uploading → done, with failed reachable
// from every non-terminal state.
func NewPipelineMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("upload").
		WithInitial(stateIdle).
		WithContext(&Context{}).
		WithAction("syncState", syncState).
		WithAction("recordTransition", recordTransition).
		WithGuard("isSuccessor", guardIsSuccessor).
		WithGuard("hasCause", guardHasCause).
		State(stateIdle).
			OnEntry("syncState").
			On(EventValidate).Target(stateValidating).Guard("isSuccessor").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasCause").Do("recordTransition").
			Done().
		State(stateValidating).
			OnEntry("syncState").
			On(EventArchive).Target(stateArchiving).Guard("isSuccessor").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasCause").Do("recordTransition").
			Done().
		State(stateArchiving).
			OnEntry("syncState").
			On(EventUpload).Target(stateUploading).Guard("isSuccessor").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasCause").Do("recordTransition").
			Done().
		State(stateUploading).
			OnEntry("syncState").
			On(EventDone).Target(stateDone).Guard("isSuccessor").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasCause").Do("recordTransition").
			Done().
		State(stateDone).
			Final().
			OnEntry("syncState").
			Done().
		State(stateFailed).
			Final().
			OnEntry("syncState").
			Done().
		Build()
}

// EventForTransition returns the event type for entering a state.
func EventForTransition(to artifact.State) statekit.EventType {
	switch to {
	case artifact.StateValidating:
		return EventValidate
	case artifact.StateArchiving:
		return EventArchive
	case artifact.StateUploading:
		return EventUpload
	case artifact.StateDone:
		return EventDone
	case artifact.StateFailed:
		return EventFail
	default:
		return statekit.EventType(to)
	}
}

// StateFromMachine converts the machine state ID to domain State.
func StateFromMachine(stateID statekit.StateID) artifact.State {
	return artifact.State(stateID)
}
