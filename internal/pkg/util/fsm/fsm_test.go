package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
)

func TestWrapEvent(t *testing.T) {
	boom := errors.New("boom")

	m := fsm.NewFSM("a", fsm.Events{
		{Name: "go", Src: []string{"a"}, Dst: "b"},
	}, fsm.Callbacks{
		"enter_b": WrapEvent(func(_ context.Context, _ *fsm.Event) error { return boom }),
	})

	err := m.Event(context.Background(), "go")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "b", m.Current())
}

func TestIsRealError(t *testing.T) {
	assert.False(t, IsRealError(nil))
	assert.False(t, IsRealError(fsm.NoTransitionError{}))
	assert.False(t, IsRealError(fsm.CanceledError{}))
	assert.True(t, IsRealError(fsm.InvalidEventError{Event: "go", State: "b"}))
}
