package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bidwright/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bidwright/internal/core/domain"
)

const (
	testSession = "session-1"
	sampleRFP   = "RFP for IT consulting, due 2025-06-01, evaluation: price 40%, experience 60%"
)

// newTestPipeline wires a pipeline over an in-memory run store.
func newTestPipeline(llm *mockLLMService, settings domain.PipelineSettings) (*PipelineService, *memory.RunStore) {
	store := memory.NewRunStore(time.Hour)
	runner := NewStageRunner(llm, nil, settings)
	registry := &mockExtractorRegistry{extractor: &mockExtractor{}}
	return NewPipelineService(runner, store, registry, settings), store
}

func uploadSample(t *testing.T, svc *PipelineService) domain.Run {
	t.Helper()
	run, err := svc.Upload(context.Background(), testSession, "rfp.txt", "text/plain", []byte(sampleRFP))
	require.NoError(t, err)
	return run
}

func TestPipelineService_Load_CreatesIdleRun(t *testing.T) {
	svc, store := newTestPipeline(&mockLLMService{}, domain.DefaultPipelineSettings())

	run, err := svc.Load(context.Background(), testSession)
	require.NoError(t, err)
	assert.Equal(t, testSession, run.ID)
	assert.Equal(t, domain.StageIdle, run.Stage)
	assert.Equal(t, 1, store.Len())

	_, err = svc.Load(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipelineService_RunToEnd_FallbackContinues(t *testing.T) {
	llm := &mockLLMService{replies: []string{
		"Sorry, I cannot comply.",
		"- Past project: Federal IT modernisation",
		"## Executive Summary\nWe deliver.",
		"## Completeness\nAll covered.",
	}}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	ctx := context.Background()

	uploaded := uploadSample(t, svc)
	assert.Equal(t, sampleRFP, uploaded.RawText)
	assert.Equal(t, "rfp.txt", uploaded.DocumentName)

	run, err := svc.RunToEnd(ctx, testSession)
	require.NoError(t, err)

	assert.True(t, run.Done())
	require.NotNil(t, run.Requirements)
	assert.True(t, run.Requirements.IsFallback())
	assert.Equal(t, "Could not extract proper JSON format from response", run.Requirements.Error)
	assert.Equal(t, "Sorry, I cannot comply.", run.Requirements.RawResponse)
	assert.Equal(t, "- Past project: Federal IT modernisation", run.Knowledge)
	assert.Equal(t, "## Executive Summary\nWe deliver.", run.Draft)
	assert.Equal(t, "## Completeness\nAll covered.", run.Review)

	require.Equal(t, 4, llm.callCount())
	assert.Contains(t, llm.call(0).prompt, sampleRFP)
	// The fallback record is what the next stage sees.
	assert.Contains(t, llm.call(1).prompt, `"raw_response": "Sorry, I cannot comply."`)

	stored, err := svc.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, run.Review, stored.Review)
	assert.Equal(t, domain.StageDone, stored.Stage)
}

func TestPipelineService_StepByStep(t *testing.T) {
	llm := &mockLLMService{replies: []string{`{"requirements": ["IT consulting"]}`, "K", "D", "R"}}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	ctx := context.Background()
	uploadSample(t, svc)

	run, err := svc.Start(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.StageParsing, run.Stage)
	assert.Zero(t, llm.callCount(), "start makes no model call")

	want := []domain.Stage{domain.StageRetrieving, domain.StageDrafting, domain.StageReviewing, domain.StageDone}
	for i, stage := range want {
		run, err = svc.Advance(ctx, testSession)
		require.NoError(t, err)
		assert.Equal(t, stage, run.Stage)
		assert.Equal(t, i+1, llm.callCount(), "one call per stage")
	}

	assert.False(t, run.Requirements.IsFallback())
	for _, stage := range domain.AgentStages {
		assert.Equal(t, domain.StatusComplete, run.StatusOf(stage))
	}

	_, err = svc.Advance(ctx, testSession)
	assert.ErrorIs(t, err, domain.ErrStageOutOfOrder)
	assert.Equal(t, 4, llm.callCount())
}

func TestPipelineService_RestartAfterDone(t *testing.T) {
	llm := &mockLLMService{replies: []string{`{"deadlines": "2025-06-01"}`, "K", "D", "R"}}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	ctx := context.Background()
	uploadSample(t, svc)

	first, err := svc.RunToEnd(ctx, testSession)
	require.NoError(t, err)
	require.True(t, first.Done())

	_, err = svc.Start(ctx, testSession)
	assert.ErrorIs(t, err, domain.ErrStageOutOfOrder)

	reset, err := svc.Reset(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.StageIdle, reset.Stage)
	assert.Empty(t, reset.RawText)
	assert.Nil(t, reset.Requirements)
	assert.Empty(t, reset.Knowledge)
	assert.Empty(t, reset.Draft)
	assert.Empty(t, reset.Review)
	assert.Equal(t, first.CreatedAt, reset.CreatedAt)

	uploadSample(t, svc)
	second, err := svc.RunToEnd(ctx, testSession)
	require.NoError(t, err)
	assert.True(t, second.Done())
	assert.Equal(t, 8, llm.callCount())
}

func TestPipelineService_OutOfOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("start without document", func(t *testing.T) {
		svc, _ := newTestPipeline(&mockLLMService{}, domain.DefaultPipelineSettings())
		_, err := svc.Start(ctx, testSession)
		assert.ErrorIs(t, err, domain.ErrNoDocument)
	})

	t.Run("advance while idle", func(t *testing.T) {
		llm := &mockLLMService{}
		svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
		uploadSample(t, svc)

		_, err := svc.Advance(ctx, testSession)
		assert.ErrorIs(t, err, domain.ErrStageOutOfOrder)
		assert.Zero(t, llm.callCount())

		run, err := svc.Load(ctx, testSession)
		require.NoError(t, err)
		assert.False(t, run.Halted(), "out-of-order calls do not halt the run")
	})

	t.Run("second upload", func(t *testing.T) {
		svc, _ := newTestPipeline(&mockLLMService{}, domain.DefaultPipelineSettings())
		uploadSample(t, svc)

		_, err := svc.Upload(ctx, testSession, "other.txt", "text/plain", []byte("other"))
		assert.ErrorIs(t, err, domain.ErrDocumentLoaded)
	})

	t.Run("start twice", func(t *testing.T) {
		svc, _ := newTestPipeline(&mockLLMService{}, domain.DefaultPipelineSettings())
		uploadSample(t, svc)

		_, err := svc.Start(ctx, testSession)
		require.NoError(t, err)
		_, err = svc.Start(ctx, testSession)
		assert.ErrorIs(t, err, domain.ErrStageOutOfOrder)
	})
}

func TestPipelineService_UpstreamFailureHalts(t *testing.T) {
	upstream := &domain.UpstreamError{Provider: "anthropic", StatusCode: 500, Body: "internal error"}
	llm := &mockLLMService{
		replies: []string{`{"requirements": ["a"]}`, "K", "D", "R"},
		errs:    map[int]error{1: upstream},
	}
	obs := &mockObserver{}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	svc.SetObserver(obs)
	ctx := context.Background()
	uploadSample(t, svc)

	run, err := svc.RunToEnd(ctx, testSession)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.True(t, run.Halted())
	assert.Equal(t, domain.StageRetrieving, run.Stage)
	assert.Equal(t, domain.StageRetrieving, run.FailedStage)
	assert.Contains(t, run.Failure, "API returned status 500")
	assert.Equal(t, domain.StatusComplete, run.StatusOf(domain.StageParsing))
	assert.Equal(t, domain.StatusFailed, run.StatusOf(domain.StageRetrieving))
	assert.Empty(t, run.Knowledge)

	stored, err := svc.Load(ctx, testSession)
	require.NoError(t, err)
	assert.True(t, stored.Halted(), "halt is persisted")

	_, err = svc.Advance(ctx, testSession)
	assert.ErrorIs(t, err, domain.ErrRunHalted)
	assert.Equal(t, 2, llm.callCount(), "a halted run makes no further calls")

	require.Len(t, obs.events, 4)
	assert.Equal(t, stageEvent{started: true, stage: domain.StageParsing}, obs.events[0])
	assert.NoError(t, obs.events[1].err)
	assert.Equal(t, domain.StageRetrieving, obs.events[3].stage)
	assert.ErrorIs(t, obs.events[3].err, domain.ErrUpstream)

	reset, err := svc.Reset(ctx, testSession)
	require.NoError(t, err)
	assert.False(t, reset.Halted())
	assert.Equal(t, domain.StageIdle, reset.Stage)
}

func TestPipelineService_FallbackHaltPolicy(t *testing.T) {
	llm := &mockLLMService{replies: []string{"Sorry, I cannot comply."}}
	settings := domain.PipelineSettings{Fallback: domain.FallbackHalt}
	svc, _ := newTestPipeline(llm, settings)
	uploadSample(t, svc)

	run, err := svc.RunToEnd(context.Background(), testSession)
	require.ErrorIs(t, err, domain.ErrMalformedReply)
	assert.Contains(t, err.Error(), "Could not extract proper JSON format from response")
	assert.True(t, run.Halted())
	assert.Equal(t, domain.StageParsing, run.FailedStage)
	assert.Nil(t, run.Requirements)
	assert.Equal(t, 1, llm.callCount())
}

func TestPipelineService_InvalidPolicyContinues(t *testing.T) {
	svc, _ := newTestPipeline(&mockLLMService{}, domain.PipelineSettings{Fallback: "retry"})
	assert.Equal(t, domain.FallbackContinue, svc.fallback)
}

func TestPipelineService_RejectsConcurrentCalls(t *testing.T) {
	llm := &mockLLMService{
		replies: []string{`{"requirements": ["a"]}`},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	ctx := context.Background()
	uploadSample(t, svc)
	_, err := svc.Start(ctx, testSession)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Advance(ctx, testSession)
		done <- err
	}()
	<-llm.entered

	assert.True(t, svc.Busy(testSession))
	_, err = svc.Advance(ctx, testSession)
	assert.ErrorIs(t, err, domain.ErrStageInProgress)
	_, err = svc.Reset(ctx, testSession)
	assert.ErrorIs(t, err, domain.ErrStageInProgress)

	// Other sessions are unaffected.
	_, err = svc.Load(ctx, "session-2")
	assert.NoError(t, err)
	assert.False(t, svc.Busy("session-2"))

	close(llm.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Busy(testSession))
	assert.Equal(t, 1, llm.callCount())

	run, err := svc.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRetrieving, run.Stage)
}

func TestPipelineService_CancelledContextHalts(t *testing.T) {
	llm := &mockLLMService{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc, _ := newTestPipeline(llm, domain.DefaultPipelineSettings())
	uploadSample(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.RunToEnd(ctx, testSession)
		done <- err
	}()
	<-llm.entered
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	run, err := svc.Load(context.Background(), testSession)
	require.NoError(t, err)
	assert.True(t, run.Halted())
	assert.Equal(t, domain.StageParsing, run.FailedStage)
}

func TestPipelineService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		registry *mockExtractorRegistry
		file     string
		content  string
		wantErr  error
	}{
		{
			name:     "unsupported type",
			registry: &mockExtractorRegistry{extractor: &mockExtractor{}},
			file:     "rfp.xlsx",
			content:  "data",
			wantErr:  domain.ErrUnsupportedType,
		},
		{
			name:     "blank text",
			registry: &mockExtractorRegistry{extractor: &mockExtractor{text: " \n\t "}},
			file:     "rfp.txt",
			content:  "ignored",
			wantErr:  domain.ErrNoDocument,
		},
		{
			name:     "extractor error",
			registry: &mockExtractorRegistry{extractor: &mockExtractor{err: assert.AnError}},
			file:     "rfp.txt",
			content:  "data",
			wantErr:  assert.AnError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewRunStore(time.Hour)
			runner := NewStageRunner(&mockLLMService{}, nil, domain.DefaultPipelineSettings())
			svc := NewPipelineService(runner, store, tt.registry, domain.DefaultPipelineSettings())

			run, err := svc.Upload(ctx, testSession, tt.file, "", []byte(tt.content))
			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, run.HasDocument())
			assert.False(t, svc.Busy(testSession))
		})
	}

	t.Run("no registry", func(t *testing.T) {
		runner := NewStageRunner(&mockLLMService{}, nil, domain.DefaultPipelineSettings())
		svc := NewPipelineService(runner, memory.NewRunStore(time.Hour), nil, domain.DefaultPipelineSettings())

		_, err := svc.Upload(ctx, testSession, "rfp.txt", "text/plain", []byte("x"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("empty session", func(t *testing.T) {
		svc, _ := newTestPipeline(&mockLLMService{}, domain.DefaultPipelineSettings())
		_, err := svc.Upload(ctx, "", "rfp.txt", "text/plain", []byte("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPipelineService_HaltSaveFailure(t *testing.T) {
	llm := &mockLLMService{errs: map[int]error{0: assert.AnError}}
	store := &failingRunStore{RunStore: memory.NewRunStore(time.Hour)}
	runner := NewStageRunner(llm, nil, domain.DefaultPipelineSettings())
	svc := NewPipelineService(runner, store, &mockExtractorRegistry{extractor: &mockExtractor{}}, domain.DefaultPipelineSettings())
	ctx := context.Background()

	_, err := svc.Upload(ctx, testSession, "rfp.txt", "text/plain", []byte(sampleRFP))
	require.NoError(t, err)
	_, err = svc.Start(ctx, testSession)
	require.NoError(t, err)

	store.failSave = true
	_, err = svc.Advance(ctx, testSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, assert.AnError))
	assert.True(t, errors.Is(err, errSaveFailed))
}
