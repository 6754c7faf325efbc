package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/callsight-ai/callsight/internal/model"
)

type PipelineSuite struct {
	suite.Suite
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audioPath)
	f.mu.Unlock()
	if err := f.fail[audioPath]; err != nil {
		return "", err
	}
	return "transcript of " + audioPath, nil
}

type fakeAnonymizer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAnonymizer) AnonymizeText(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return "[anonymized] " + text, nil
}

type fakeAnalyzer struct {
	direct bool
	fail   map[string]error

	mu          sync.Mutex
	transcripts map[string]string
	inFlight    int
	maxInFlight int
	started     chan struct{}
	release     chan struct{}
}

func (f *fakeAnalyzer) DirectAudio() bool { return f.direct }

func (f *fakeAnalyzer) Analyze(_ context.Context, audioPath, transcript string, opts model.ChecklistOptions) (*model.AnalysisResult, error) {
	f.mu.Lock()
	if f.transcripts == nil {
		f.transcripts = map[string]string{}
	}
	f.transcripts[audioPath] = transcript
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.started != nil {
		// Rendezvous so the whole batch is observably concurrent. Separate
		// channels so one analyzer's start signal cannot be consumed by a
		// sibling waiting for its release.
		f.started <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err := f.fail[audioPath]; err != nil {
		return nil, err
	}
	return &model.AnalysisResult{
		Transcription: model.StringPtr(transcript),
		Results:       model.Results{Raw: "ok"},
		Metadata:      model.NewMetadata("fake-model", opts),
	}, nil
}

type fakeSink struct {
	mu       sync.Mutex
	results  []model.AudioItem
	failures map[string]error
	saveErr  error
}

func (f *fakeSink) SaveResult(_ context.Context, item model.AudioItem, _ *model.AnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	f.results = append(f.results, item)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) SaveFailure(_ context.Context, item model.AudioItem, failure error) error {
	f.mu.Lock()
	if f.failures == nil {
		f.failures = map[string]error{}
	}
	f.failures[item.File] = failure
	f.mu.Unlock()
	return nil
}

func testItems(n int) []model.AudioItem {
	items := make([]model.AudioItem, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("call%d.mp3", i+1)
		items = append(items, model.AudioItem{Campaign: "summer", File: name, Path: "/audios/" + name})
	}
	return items
}

func testOpts() model.ChecklistOptions {
	return model.ChecklistOptions{DoChecklist: []string{"greet"}, Language: "en"}
}

func (s *PipelineSuite) TestNewValidations() {
	analyzer := &fakeAnalyzer{}
	sink := &fakeSink{}

	_, err := New(nil, sink, Options{})
	s.Error(err)

	_, err = New(analyzer, nil, Options{})
	s.Error(err)

	_, err = New(analyzer, sink, Options{})
	s.ErrorContains(err, "transcriber is required")

	_, err = New(analyzer, sink, Options{Transcriber: &fakeTranscriber{}, AnonymizeEnabled: true})
	s.ErrorContains(err, "anonymizer is required")

	_, err = New(&fakeAnalyzer{direct: true}, sink, Options{})
	s.NoError(err)
}

func (s *PipelineSuite) TestRunSettlesEveryItemInOrder() {
	transcriber := &fakeTranscriber{}
	analyzer := &fakeAnalyzer{}
	sink := &fakeSink{}
	coordinator, err := New(analyzer, sink, Options{Transcriber: transcriber, BatchSize: 2})
	s.Require().NoError(err)

	items := testItems(5)
	outcomes := coordinator.Run(context.Background(), testOpts(), items)

	s.Require().Len(outcomes, 5)
	for i, outcome := range outcomes {
		s.Equal(items[i].File, outcome.Item.File)
		s.Equal(StateSucceeded, outcome.State)
		s.NoError(outcome.Err)
		s.NotNil(outcome.Result)
		s.NotEqual("00000000-0000-0000-0000-000000000000", outcome.RunID.String())
	}
	s.Len(sink.results, 5)
}

func (s *PipelineSuite) TestOneFailureDoesNotAbortSiblings() {
	boom := errors.New("backend exploded")
	transcriber := &fakeTranscriber{}
	analyzer := &fakeAnalyzer{fail: map[string]error{"/audios/call3.mp3": boom}}
	sink := &fakeSink{}
	coordinator, err := New(analyzer, sink, Options{Transcriber: transcriber, BatchSize: 2})
	s.Require().NoError(err)

	outcomes := coordinator.Run(context.Background(), testOpts(), testItems(5))

	s.Require().Len(outcomes, 5)
	for i, outcome := range outcomes {
		if i == 2 {
			s.Equal(StateFailed, outcome.State)
			s.ErrorIs(outcome.Err, boom)
			s.Nil(outcome.Result)
			continue
		}
		s.Equal(StateSucceeded, outcome.State)
		s.NoError(outcome.Err)
	}

	s.Len(sink.results, 4)
	s.Require().Len(sink.failures, 1)
	s.ErrorIs(sink.failures["call3.mp3"], boom)
}

func (s *PipelineSuite) TestBatchBoundsConcurrency() {
	started := make(chan struct{})
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{direct: true, started: started, release: release}
	coordinator, err := New(analyzer, &fakeSink{}, Options{BatchSize: 3})
	s.Require().NoError(err)

	done := make(chan []Outcome)
	go func() {
		done <- coordinator.Run(context.Background(), testOpts(), testItems(7))
	}()

	// Release the analyzers batch by batch; every batch must fill up before
	// any of it finishes, and never beyond the batch size.
	for _, batch := range []int{3, 3, 1} {
		for i := 0; i < batch; i++ {
			<-started
		}
		for i := 0; i < batch; i++ {
			release <- struct{}{}
		}
	}

	outcomes := <-done
	s.Len(outcomes, 7)
	s.Equal(3, analyzer.maxInFlight)
}

func (s *PipelineSuite) TestDirectAudioSkipsTranscription() {
	transcriber := &fakeTranscriber{}
	analyzer := &fakeAnalyzer{direct: true}
	coordinator, err := New(analyzer, &fakeSink{}, Options{Transcriber: transcriber})
	s.Require().NoError(err)

	outcome := coordinator.ProcessItem(context.Background(), testOpts(), testItems(1)[0])

	s.Equal(StateSucceeded, outcome.State)
	s.Empty(transcriber.calls)
	s.Equal("", analyzer.transcripts["/audios/call1.mp3"])
}

func (s *PipelineSuite) TestAnonymizationStageBypassedWhenDisabled() {
	anonymizer := &fakeAnonymizer{}
	analyzer := &fakeAnalyzer{}
	coordinator, err := New(analyzer, &fakeSink{}, Options{
		Transcriber: &fakeTranscriber{},
		Anonymizer:  anonymizer,
	})
	s.Require().NoError(err)

	outcome := coordinator.ProcessItem(context.Background(), testOpts(), testItems(1)[0])

	s.Equal(StateSucceeded, outcome.State)
	s.Zero(anonymizer.calls)
	s.Equal("transcript of /audios/call1.mp3", analyzer.transcripts["/audios/call1.mp3"])
}

func (s *PipelineSuite) TestAnonymizationAppliedWhenEnabled() {
	anonymizer := &fakeAnonymizer{}
	analyzer := &fakeAnalyzer{}
	coordinator, err := New(analyzer, &fakeSink{}, Options{
		Transcriber:      &fakeTranscriber{},
		Anonymizer:       anonymizer,
		AnonymizeEnabled: true,
	})
	s.Require().NoError(err)

	outcome := coordinator.ProcessItem(context.Background(), testOpts(), testItems(1)[0])

	s.Equal(StateSucceeded, outcome.State)
	s.Equal(1, anonymizer.calls)
	s.Equal("[anonymized] transcript of /audios/call1.mp3", analyzer.transcripts["/audios/call1.mp3"])
}

func (s *PipelineSuite) TestTranscriptionFailureRecordedWithStage() {
	boom := errors.New("whisper down")
	transcriber := &fakeTranscriber{fail: map[string]error{"/audios/call1.mp3": boom}}
	sink := &fakeSink{}
	coordinator, err := New(&fakeAnalyzer{}, sink, Options{Transcriber: transcriber})
	s.Require().NoError(err)

	outcome := coordinator.ProcessItem(context.Background(), testOpts(), testItems(1)[0])

	s.Equal(StateFailed, outcome.State)
	s.ErrorIs(outcome.Err, boom)
	s.ErrorIs(sink.failures["call1.mp3"], boom)
}

func (s *PipelineSuite) TestSinkWriteFailureCountsAsItemFailure() {
	saveErr := errors.New("db unavailable")
	sink := &fakeSink{saveErr: saveErr}
	coordinator, err := New(&fakeAnalyzer{direct: true}, sink, Options{})
	s.Require().NoError(err)

	outcome := coordinator.ProcessItem(context.Background(), testOpts(), testItems(1)[0])

	s.Equal(StateFailed, outcome.State)
	s.ErrorIs(outcome.Err, saveErr)
	s.ErrorIs(sink.failures["call1.mp3"], saveErr)
}
