package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ Name string }

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type recordingLogger struct{ messages []string }

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{})  { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) { l.messages = append(l.messages, msg) }

func TestCommandBus_Send(t *testing.T) {
	// Arrange
	logger := &recordingLogger{}
	b := NewCommandBus(LoggingMiddleware(logger))
	var got string
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		got = cmd.(pingCommand).Name
		return nil
	})))

	// Act
	err := b.Send(context.Background(), pingCommand{Name: "hello"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, []string{"Executing command", "Command succeeded"}, logger.messages)
}

func TestCommandBus_ValidationStopsDispatch(t *testing.T) {
	b := NewCommandBus()
	called := false
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		called = true
		return nil
	})))

	err := b.Send(context.Background(), pingCommand{})

	assert.EqualError(t, err, "name is required")
	assert.False(t, called)
}

func TestCommandBus_HandlerErrorIsReturnedAsIs(t *testing.T) {
	want := errors.New("boom")
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return want
	})))

	err := b.Send(context.Background(), pingCommand{Name: "x"})

	assert.Same(t, want, err)
}

func TestCommandBus_RegisterTwice(t *testing.T) {
	b := NewCommandBus()
	noop := CommandHandlerFunc(func(ctx context.Context, cmd Command) error { return nil })
	require.NoError(t, b.Register(pingCommand{}, noop))

	assert.Error(t, b.Register(pingCommand{}, noop))
}

func TestCommandBus_UnknownCommand(t *testing.T) {
	err := NewCommandBus().Send(context.Background(), pingCommand{Name: "x"})

	assert.ErrorContains(t, err, "no handler registered")
}
