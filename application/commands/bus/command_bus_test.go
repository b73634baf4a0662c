package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCommand struct {
	fail bool
}

func (c testCommand) Validate() error {
	if c.fail {
		return errors.New("bad command")
	}
	return nil
}

type recordingHandler struct {
	calls int
	err   error
	tx    Transaction
}

func (h *recordingHandler) Handle(ctx context.Context, cmd Command) error {
	h.calls++
	h.tx, _ = TransactionFromContext(ctx)
	return h.err
}

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.errors = append(l.errors, msg)
}

type recordingTimer struct {
	stopped bool
}

func (t *recordingTimer) Stop() { t.stopped = true }

type recordingMetrics struct {
	timers []string
	counts map[string]int
	timer  *recordingTimer
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int), timer: &recordingTimer{}}
}

func (m *recordingMetrics) StartTimer(metric string, label string) Timer {
	m.timers = append(m.timers, metric+":"+label)
	return m.timer
}

func (m *recordingMetrics) Increment(metric string, label string) {
	m.counts[metric+":"+label]++
}

type recordingTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *recordingTx) Commit() error {
	t.committed = true
	return t.commitErr
}

func (t *recordingTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type recordingTxManager struct {
	tx       *recordingTx
	beginErr error
}

func (m *recordingTxManager) Begin(ctx context.Context) (Transaction, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.tx = &recordingTx{}
	return m.tx, nil
}

func TestCommandBus_SendDispatchesToHandler(t *testing.T) {
	b := NewCommandBus()
	handler := &recordingHandler{}
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{})

	assert.NoError(t, err)
	assert.Equal(t, 1, handler.calls)
}

func TestCommandBus_SendRejectsInvalidCommand(t *testing.T) {
	b := NewCommandBus()
	handler := &recordingHandler{}
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{fail: true})

	assert.Error(t, err)
	assert.Equal(t, 0, handler.calls)
}

func TestCommandBus_SendUnregisteredCommand(t *testing.T) {
	b := NewCommandBus()

	err := b.Send(context.Background(), testCommand{})

	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCommandBus_RegisterRejectsDuplicate(t *testing.T) {
	b := NewCommandBus()
	require.NoError(t, b.Register(testCommand{}, &recordingHandler{}))

	err := b.Register(testCommand{}, &recordingHandler{})

	assert.Error(t, err)
}

func TestCommandBus_WithDependenciesRunsPipeline(t *testing.T) {
	logger := &recordingLogger{}
	metrics := newRecordingMetrics()
	txManager := &recordingTxManager{}

	b := NewCommandBusWithDependencies(logger, txManager, metrics)
	handler := &recordingHandler{}
	require.NoError(t, b.Register(testCommand{}, handler))

	err := b.Send(context.Background(), testCommand{})
	require.NoError(t, err)

	assert.Equal(t, 1, handler.calls)
	assert.NotNil(t, handler.tx, "handler should see the ambient transaction")
	assert.True(t, txManager.tx.committed)
	assert.False(t, txManager.tx.rolledBack)
	assert.True(t, metrics.timer.stopped)
	assert.Equal(t, 1, metrics.counts["command_success:testCommand"])
	assert.Contains(t, logger.infos, "Command succeeded")
}

func TestCommandBus_TransactionRollsBackOnFailure(t *testing.T) {
	txManager := &recordingTxManager{}
	b := NewCommandBusWithDependencies(nil, txManager, nil)

	handlerErr := errors.New("handler failed")
	require.NoError(t, b.Register(testCommand{}, &recordingHandler{err: handlerErr}))

	err := b.Send(context.Background(), testCommand{})

	assert.ErrorIs(t, err, handlerErr)
	assert.True(t, txManager.tx.rolledBack)
	assert.False(t, txManager.tx.committed)
}

func TestMetricsMiddleware_CountsErrors(t *testing.T) {
	metrics := newRecordingMetrics()
	mw := MetricsMiddleware(metrics)

	wrapped := mw(CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return errors.New("boom")
	}))
	err := wrapped.Handle(context.Background(), testCommand{})

	assert.Error(t, err)
	assert.Equal(t, 1, metrics.counts["command_errors:testCommand"])
	assert.Equal(t, []string{"command_duration:testCommand"}, metrics.timers)
}

func TestTransactionFromContext_Empty(t *testing.T) {
	tx, ok := TransactionFromContext(context.Background())

	assert.False(t, ok)
	assert.Nil(t, tx)
}

func TestPipeline_AppliesMiddlewareInOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	p := NewPipeline(mk("outer"), mk("inner"))
	err := p.Execute(CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		order = append(order, "handler")
		return nil
	})).Handle(context.Background(), testCommand{})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
