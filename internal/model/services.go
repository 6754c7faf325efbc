package model

import "context"

// The three AI capabilities every provider variant plugs into. Variants are
// selected once at startup by the factory in internal/ai; callers never
// branch on which backend is behind an interface.

// Transcriber turns an audio file into text. Implementations validate the
// file (existence, size, format) before any network call and never return an
// empty transcript without an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Anonymizer replaces personal or sensitive data in a text while preserving
// the remaining meaning.
type Anonymizer interface {
	AnonymizeText(ctx context.Context, text string) (string, error)
}

// Analyzer produces a compliance report for one recording. Transcript-driven
// variants consume the transcript argument; direct-audio variants ignore it
// and work from the file. DirectAudio reports which mode the variant runs in
// so the pipeline can skip the transcription stage entirely.
type Analyzer interface {
	Analyze(ctx context.Context, audioPath, transcript string, opts ChecklistOptions) (*AnalysisResult, error)
	DirectAudio() bool
}

// ChecklistOptions carries a campaign's checklist into an analysis request.
type ChecklistOptions struct {
	DoChecklist   []string
	DontChecklist []string
	Language      string
}

// AudioItem references one recording awaiting processing. Exactly one
// AnalysisResult or one failure record is produced per item.
type AudioItem struct {
	Campaign string
	File     string
	Path     string
}
