// Package storagetest holds the behaviour every RunStore backend shares,
// written once and run against each backend from its own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// SampleRun returns a finished run with every entity populated.
func SampleRun(t *testing.T, id string) domain.Run {
	t.Helper()
	reqs := domain.RequirementSet{
		Fields: map[string]any{
			"requirements": []any{"IT consulting"},
			"deadlines":    "2025-06-01",
		},
		Keys: []string{"requirements", "deadlines"},
	}

	run, err := domain.NewRun(id).WithDocument("rfp.pdf", "RFP for IT consulting, due 2025-06-01")
	require.NoError(t, err)
	run, err = run.Start()
	require.NoError(t, err)
	run, err = run.WithRequirements(reqs)
	require.NoError(t, err)
	run, err = run.WithKnowledge("We have delivered 40 consulting engagements.")
	require.NoError(t, err)
	run, err = run.WithDraft("## Executive Summary\n- Proven delivery")
	require.NoError(t, err)
	run, err = run.WithReview("Completeness: 8/10")
	require.NoError(t, err)
	return run
}

// AssertSameRun compares two runs, treating timestamps as instants.
func AssertSameRun(t *testing.T, want, got domain.Run) {
	t.Helper()
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", want.UpdatedAt, got.UpdatedAt)
	want.CreatedAt, want.UpdatedAt = got.CreatedAt, got.UpdatedAt
	assert.Equal(t, want, got)
}

// RunStoreContract runs the shared RunStore behaviour against a fresh store
// from newStore for each case.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) driven.RunStore) {
	ctx := context.Background()

	t.Run("missing run is not found", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save then get returns the run", func(t *testing.T) {
		store := newStore(t)
		run := SampleRun(t, "sess-contract")
		require.NoError(t, store.Save(ctx, run))

		got, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		AssertSameRun(t, run, *got)
		assert.Equal(t, []string{"requirements", "deadlines"}, got.Requirements.Keys)
	})

	t.Run("save replaces", func(t *testing.T) {
		store := newStore(t)
		run := SampleRun(t, "sess-replace")
		require.NoError(t, store.Save(ctx, run))
		require.NoError(t, store.Save(ctx, run.Reset()))

		got, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageIdle, got.Stage)
		assert.Nil(t, got.Requirements)
		assert.Empty(t, got.Draft)
	})

	t.Run("halted run keeps its failure", func(t *testing.T) {
		store := newStore(t)
		run, err := domain.NewRun("sess-halt").WithDocument("rfp.txt", "text")
		require.NoError(t, err)
		run, err = run.Start()
		require.NoError(t, err)
		run = run.Halt(&domain.UpstreamError{Provider: "anthropic", StatusCode: 529, Body: "Overloaded"})
		require.NoError(t, store.Save(ctx, run))

		got, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.True(t, got.Halted())
		assert.Equal(t, domain.StageParsing, got.FailedStage)
		assert.Equal(t, domain.StatusFailed, got.StatusOf(domain.StageParsing))
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		run := domain.NewRun("sess-delete")
		require.NoError(t, store.Save(ctx, run))
		require.NoError(t, store.Delete(ctx, run.ID))

		_, err := store.Get(ctx, run.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, store.Delete(ctx, run.ID), "deleting a missing run is not an error")
	})

	t.Run("empty ID is rejected", func(t *testing.T) {
		store := newStore(t)
		assert.ErrorIs(t, store.Save(ctx, domain.Run{}), domain.ErrInvalidInput)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		store := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run, err := domain.NewRun(fmt.Sprintf("sess-%d", i)).WithDocument("rfp.txt", fmt.Sprintf("document %d", i))
				if assert.NoError(t, err) {
					assert.NoError(t, store.Save(ctx, run))
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < 8; i++ {
			got, err := store.Get(ctx, fmt.Sprintf("sess-%d", i))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("document %d", i), got.RawText)
		}
	})
}
