// Package pipeline coordinates the per-recording analysis flow:
// transcription, optional anonymization, analysis, and hand-off to the
// result sink. It is the single place that decides an item has failed.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
)

const defaultBatchSize = 3

// Sink persists terminal outcomes: one analysis result or one failure record
// per item, never both. Implementations also relocate the source audio.
type Sink interface {
	SaveResult(ctx context.Context, item model.AudioItem, result *model.AnalysisResult) error
	SaveFailure(ctx context.Context, item model.AudioItem, failure error) error
}

// State names the position of an item in its processing lifecycle.
type State string

const (
	StatePending      State = "pending"
	StateTranscribing State = "transcribing"
	StateAnonymizing  State = "anonymizing"
	StateAnalyzing    State = "analyzing"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Outcome is the settled record of one item: a result on success, the error
// plus the state it failed in otherwise.
type Outcome struct {
	RunID  uuid.UUID
	Item   model.AudioItem
	State  State
	Result *model.AnalysisResult
	Err    error
}

type Options struct {
	// Transcriber may be nil when the analyzer works directly from audio.
	Transcriber model.Transcriber
	// Anonymizer is only consulted when AnonymizeEnabled is set.
	Anonymizer       model.Anonymizer
	AnonymizeEnabled bool
	// BatchSize bounds concurrent backend calls; batches run strictly in
	// sequence.
	BatchSize int
}

type Coordinator struct {
	analyzer    model.Analyzer
	sink        Sink
	transcriber model.Transcriber
	anonymizer  model.Anonymizer
	anonymize   bool
	batchSize   int
}

func New(analyzer model.Analyzer, sink Sink, opts Options) (*Coordinator, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if !analyzer.DirectAudio() && opts.Transcriber == nil {
		return nil, errors.New("transcriber is required for a transcript-driven analyzer")
	}
	if opts.AnonymizeEnabled && opts.Anonymizer == nil {
		return nil, errors.New("anonymizer is required when anonymization is enabled")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Coordinator{
		analyzer:    analyzer,
		sink:        sink,
		transcriber: opts.Transcriber,
		anonymizer:  opts.Anonymizer,
		anonymize:   opts.AnonymizeEnabled,
		batchSize:   batchSize,
	}, nil
}

// Run settles every item: fixed-size batches, concurrent within a batch,
// batches strictly sequential. One item's failure never aborts its siblings;
// the returned slice holds exactly one outcome per item, in input order.
func (c *Coordinator) Run(ctx context.Context, opts model.ChecklistOptions, items []model.AudioItem) []Outcome {
	outcomes := make([]Outcome, len(items))

	for start := 0; start < len(items); start += c.batchSize {
		end := start + c.batchSize
		if end > len(items) {
			end = len(items)
		}

		wg := sync.WaitGroup{}
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = c.ProcessItem(ctx, opts, items[i])
			}(i)
		}
		wg.Wait()
	}
	return outcomes
}

// ProcessItem runs one recording through the stage sequence and hands the
// terminal state to the sink. Side effects happen only here, on terminal
// states; no stage moves files or records failure itself.
func (c *Coordinator) ProcessItem(ctx context.Context, opts model.ChecklistOptions, item model.AudioItem) Outcome {
	log := logging.NewLogger(ctx)
	outcome := Outcome{RunID: uuid.New(), Item: item, State: StatePending}

	transcript := ""
	if !c.analyzer.DirectAudio() {
		outcome.State = StateTranscribing
		text, err := c.transcriber.Transcribe(ctx, item.Path)
		if err != nil {
			return c.fail(ctx, outcome, err)
		}
		transcript = text
	}

	// The stage is bypassed entirely when disabled; no no-op network call.
	if c.anonymize && strings.TrimSpace(transcript) != "" {
		outcome.State = StateAnonymizing
		anonymized, err := c.anonymizer.AnonymizeText(ctx, transcript)
		if err != nil {
			return c.fail(ctx, outcome, err)
		}
		transcript = anonymized
	}

	outcome.State = StateAnalyzing
	result, err := c.analyzer.Analyze(ctx, item.Path, transcript, opts)
	if err != nil {
		return c.fail(ctx, outcome, err)
	}

	if err := c.sink.SaveResult(ctx, item, result); err != nil {
		return c.fail(ctx, outcome, err)
	}

	outcome.State = StateSucceeded
	outcome.Result = result
	log.Infof("item_processed run_id=%s campaign=%q file=%q", outcome.RunID, item.Campaign, item.File)
	return outcome
}

func (c *Coordinator) fail(ctx context.Context, outcome Outcome, failure error) Outcome {
	log := logging.NewLogger(ctx)
	log.Errorf("item_failed run_id=%s campaign=%q file=%q stage=%s error=%v",
		outcome.RunID, outcome.Item.Campaign, outcome.Item.File, outcome.State, failure)

	if err := c.sink.SaveFailure(ctx, outcome.Item, failure); err != nil {
		log.Errorf("failure_record_error run_id=%s file=%q error=%v", outcome.RunID, outcome.Item.File, err)
	}

	outcome.Err = failure
	outcome.State = StateFailed
	return outcome
}
