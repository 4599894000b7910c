package store

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/drivertrack/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/drivertrack/internal/pkg/util/fsm"
)

// State is the lifecycle state of the store connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var allStates = []string{string(StateDisconnected), string(StateConnecting), string(StateConnected)}

const (
	// EventConnect starts a physical connection attempt.
	EventConnect = "connect"
	// EventEstablished marks the attempt as successful.
	EventEstablished = "established"
	// EventFail marks the attempt as failed.
	EventFail = "fail"
	// EventLose is raised by the driver's monitors when the live client dies.
	EventLose = "lose"
	// EventClose is an explicit Disconnect.
	EventClose = "close"
)

// stateMachine guards the legal transitions of a Connection. It is only
// driven while Connection.mu is held.
type stateMachine struct {
	*fsm.FSM

	notify func(State)
}

func newStateMachine(notify func(State)) *stateMachine {
	m := &stateMachine{notify: notify}

	disconnected, connecting, connected := string(StateDisconnected), string(StateConnecting), string(StateConnected)

	events := fsm.Events{
		{Name: EventConnect, Src: []string{disconnected}, Dst: connecting},
		{Name: EventEstablished, Src: []string{connecting}, Dst: connected},
		{Name: EventFail, Src: []string{connecting}, Dst: disconnected},
		{Name: EventLose, Src: []string{connected}, Dst: disconnected},
		{Name: EventClose, Src: []string{connecting, connected}, Dst: disconnected},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(m.actionEnterState),
	}

	m.FSM = fsm.NewFSM(disconnected, events, callbacks)
	metrics.SetStoreState(disconnected, allStates...)
	return m
}

// actionEnterState publishes every state change to metrics and observers.
func (m *stateMachine) actionEnterState(_ context.Context, e *fsm.Event) error {
	metrics.SetStoreState(e.Dst, allStates...)
	if m.notify != nil {
		m.notify(State(e.Dst))
	}
	return nil
}

// fire applies event and reports whether a real error occurred.
func (m *stateMachine) fire(event string) error {
	if err := m.Event(context.Background(), event); fsmutil.IsRealError(err) {
		return err
	}
	return nil
}
