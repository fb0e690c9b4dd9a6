package core_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

func TestTaskQueue_RunsTask(t *testing.T) {
	q := core.NewTaskQueue()
	defer q.Close()

	var ran atomic.Bool
	task := q.Submit("k", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.NoError(t, task.Wait())
	assert.True(t, ran.Load())
}

func TestTaskQueue_SameKeyCancelsPrevious(t *testing.T) {
	q := core.NewTaskQueue()
	defer q.Close()

	started := make(chan struct{})
	first := q.Submit("rebuild", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	var secondRan atomic.Bool
	second := q.Submit("rebuild", func(ctx context.Context) error {
		// The superseded task has fully returned before this one starts
		select {
		case <-first.Done():
		default:
			t.Error("second task started before the first finished")
		}
		secondRan.Store(true)
		return nil
	})

	assert.ErrorIs(t, first.Wait(), context.Canceled)
	assert.NoError(t, second.Wait())
	assert.True(t, secondRan.Load())
	assert.Zero(t, q.Pending())
}

func TestTaskQueue_DifferentKeysAreIndependent(t *testing.T) {
	q := core.NewTaskQueue()
	defer q.Close()

	release := make(chan struct{})
	a := q.Submit("a", func(ctx context.Context) error {
		<-release
		return nil
	})
	b := q.Submit("b", func(ctx context.Context) error { return assert.AnError })

	assert.ErrorIs(t, b.Wait(), assert.AnError)
	close(release)
	assert.NoError(t, a.Wait())
}

func TestTaskQueue_Close(t *testing.T) {
	q := core.NewTaskQueue()

	task := q.Submit("k", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	q.Close()
	assert.ErrorIs(t, task.Wait(), context.Canceled)

	late := q.Submit("k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, late.Wait(), domain.ErrQueueClosed)
}
