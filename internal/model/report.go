package model

import (
	"encoding/json"
	"strings"
	"time"
)

// AnalysisResult is the contract every analyzer variant satisfies, regardless
// of the backend's native response shape. Results is always present: either
// the fully-typed compliance report or a raw-text fallback.
type AnalysisResult struct {
	Transcription *string  `json:"transcription"`
	Results       Results  `json:"results"`
	Metadata      Metadata `json:"metadata"`
}

type Metadata struct {
	Model              string `json:"model"`
	Timestamp          string `json:"timestamp"`
	ChecklistItems     int    `json:"checklistItems"`
	DontChecklistItems int    `json:"dontChecklistItems"`
}

// NewMetadata stamps the result with the model that produced it and the
// checklist sizes it was judged against.
func NewMetadata(modelName string, opts ChecklistOptions) Metadata {
	return Metadata{
		Model:              modelName,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		ChecklistItems:     len(opts.DoChecklist),
		DontChecklistItems: len(opts.DontChecklist),
	}
}

type ComplianceReport struct {
	ComplianceScore      float64                        `json:"complianceScore"`
	OverallFeedback      string                         `json:"overallFeedback"`
	EmotionalAnalysis    EmotionalAnalysis              `json:"emotionalAnalysis"`
	CommunicationTone    CommunicationTone              `json:"communicationTone"`
	TechnicalQuality     TechnicalQuality               `json:"technicalQuality"`
	DoChecklistResults   map[string]ChecklistItemResult `json:"doChecklistResults"`
	DontChecklistResults map[string]ChecklistItemResult `json:"dontChecklistResults"`
	Strengths            []string                       `json:"strengths"`
	ImprovementAreas     []string                       `json:"improvementAreas"`
}

type EmotionalAnalysis struct {
	PredominantEmotion string `json:"predominantEmotion"`
	Justification      string `json:"justification"`
}

type CommunicationTone struct {
	ProfessionalTone bool   `json:"professionalTone"`
	EmpatheticTone   bool   `json:"empatheticTone"`
	AppropriateTone  bool   `json:"appropriateTone"`
	Justification    string `json:"justification"`
}

type TechnicalQuality struct {
	AdequateQuality bool   `json:"adequateQuality"`
	Justification   string `json:"justification"`
}

type ChecklistItemResult struct {
	Property      string `json:"property"`
	Result        bool   `json:"result"`
	Justification string `json:"justification"`
}

// Results holds either a typed compliance report or, when the backend output
// could not be parsed as the expected JSON shape, the raw response text.
type Results struct {
	Report *ComplianceReport
	Raw    string
}

func (r Results) IsRaw() bool {
	return r.Report == nil
}

type rawResults struct {
	RawResponse string `json:"rawResponse"`
}

func (r Results) MarshalJSON() ([]byte, error) {
	if r.Report != nil {
		return json.Marshal(r.Report)
	}
	return json.Marshal(rawResults{RawResponse: r.Raw})
}

func (r *Results) UnmarshalJSON(data []byte) error {
	raw := rawResults{}
	if err := json.Unmarshal(data, &raw); err == nil && raw.RawResponse != "" {
		*r = Results{Raw: raw.RawResponse}
		return nil
	}

	report := ComplianceReport{}
	if err := json.Unmarshal(data, &report); err != nil {
		return err
	}
	*r = Results{Report: &report}
	return nil
}

// ParseResults normalizes a backend's raw message content into Results. The
// fence stripping is applied uniformly to every backend's output before JSON
// parsing; a parse failure degrades to the raw-text fallback rather than
// failing the pipeline.
func ParseResults(content string) Results {
	cleaned := ExtractJSONPayload(content)

	report := ComplianceReport{}
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return Results{Raw: cleaned}
	}
	return Results{Report: &report}
}

// ExtractJSONPayload strips markdown code-fence artifacts and narrows the
// text to the outermost JSON object span, when one exists.
func ExtractJSONPayload(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

// ValidateChecklist enforces the analyzer precondition: the do-checklist is a
// non-empty sequence of non-blank strings. The dont-checklist may be empty.
func ValidateChecklist(opts ChecklistOptions) error {
	if len(opts.DoChecklist) == 0 {
		return ErrInvalidChecklist
	}
	for _, item := range opts.DoChecklist {
		if strings.TrimSpace(item) == "" {
			return ErrInvalidChecklist
		}
	}
	return nil
}

// StringPtr adapts a transcript for the AnalysisResult contract, where a nil
// transcription means "analysis worked directly from audio".
func StringPtr(s string) *string {
	return &s
}
