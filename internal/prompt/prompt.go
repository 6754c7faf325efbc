package prompt

import (
	"fmt"
	"strings"

	"github.com/callsight-ai/callsight/internal/model"
)

// SensitivePlaceholder is the fixed token the model is instructed to redact
// detected PII with, instead of omitting the JSON field.
const SensitivePlaceholder = "[SENSITIVE]"

// TechnicalQualityMarker names the analysis item that only applies when the
// model hears the audio itself. Transcript-driven prompts omit it.
const TechnicalQualityMarker = "Technical audio quality"

// AnonymizerSystemMessage is the fixed system instruction for the
// anonymization task.
const AnonymizerSystemMessage = `You are an assistant that anonymizes conversation transcripts. ` +
	`Replace every piece of personal or sensitive data (names, phone numbers, addresses, ` +
	`credit card numbers, social security numbers, account identifiers) with the placeholder ` +
	SensitivePlaceholder + `. Preserve the rest of the text and its meaning unchanged. ` +
	`Return only the anonymized transcript.`

// Instructions is the pair of messages handed to a chat backend.
type Instructions struct {
	SystemMessage string
	Prompt        string
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"pt": "Portuguese",
	"de": "German",
	"it": "Italian",
	"nl": "Dutch",
	"hi": "Hindi",
}

// LanguageName resolves a supported language code to its display name. An
// empty code falls back to Spanish, matching the historical default of the
// checklist format; an unknown non-empty code is an error.
func LanguageName(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		code = "es"
	}
	name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidLanguage, code)
	}
	return name, nil
}

// BuildInstructions produces the system message and user prompt for a
// compliance analysis. Pure and deterministic: no I/O, no clock, no state.
//
// A non-empty transcript frames the task around the transcript text and drops
// the technical-audio-quality judgement, which cannot be assessed from text.
// An empty transcript frames the task around the audio itself.
func BuildInstructions(language string, doChecklist, dontChecklist []string, transcript string) (Instructions, error) {
	languageName, err := LanguageName(language)
	if err != nil {
		return Instructions{}, err
	}

	includeTranscript := strings.TrimSpace(transcript) != ""

	start := "Given this call audio of a conversation"
	source := "audio"
	if includeTranscript {
		start = fmt.Sprintf("Given the following call transcript: %q of a conversation", transcript)
		source = "transcription"
	}

	analyses := []string{
		"Checklist compliance: Check if each of the checklist points is present in the conversation. Briefly justify your answer for each item.",
		"Emotional Analysis: Detect if any of the participants exhibit relevant emotions (e.g., anger, happiness, frustration).",
		"Communication Tone Assessment: Was the tone of voice professional, empathetic, and appropriate for the context?",
	}
	if !includeTranscript {
		analyses = append(analyses, TechnicalQualityMarker+": Evaluate whether the audio is free of interference, echoes, or external noise.")
	}
	analyses = append(analyses, "Compliance summary: Provide an overall score for compliance with the expected standards in the conversation, based on the previous points.")

	b := strings.Builder{}
	fmt.Fprintf(&b, "%s, and the following checklist of content that should be present in the conversation:\n", start)
	b.WriteString(enumerate(doChecklist))
	b.WriteString("\n\nAnd the following checklist of content that should not be present in the conversation:\n")
	b.WriteString(enumerate(dontChecklist))
	b.WriteString("\n\nPerform the following analyses:\n\n")
	for i, analysis := range analyses {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, analysis)
	}

	fmt.Fprintf(&b, "DON'T overanalyze; only respond to what is present in the %s.\n", source)
	fmt.Fprintf(&b, "If something is not present in the %s, then don't say it is.\n", source)
	if includeTranscript {
		b.WriteString("You are analyzing a transcript, so the audio quality analysis does not apply.\n")
	}
	fmt.Fprintf(&b, "If you detect any personal information (PII) or any sensitive information "+
		"(e.g., credit card numbers, social security numbers, etc.), do not include it in the "+
		"analysis and hide it in the JSON response (use %s to hide it).\n\n", SensitivePlaceholder)

	fmt.Fprintf(&b, "Submit your answers and justifications in %s.\n\n", languageName)
	b.WriteString("Please provide your analysis in the following JSON format:\n")
	b.WriteString(resultSchema(includeTranscript))

	return Instructions{SystemMessage: systemMessage, Prompt: b.String()}, nil
}

const systemMessage = `You are an assistant who evaluates different aspects of quality in a conversation. Your tasks are:
1. Analyze the content of the conversation based on a checklist.
2. Identify emotional tones and relevant emotions in the participants.
3. Assess the communication tone for professionalism and empathy.
4. Evaluate the technical quality of the audio.
5. Provide a detailed breakdown of strengths and areas for improvement.
6. Provide an overall compliance score based on the previous analyses.`

func enumerate(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

func resultSchema(includeTranscript bool) string {
	technicalQuality := `    "technicalQuality": {         // Assessment of technical audio quality
        "adequateQuality": boolean, // Whether the audio quality was adequate (true or false)
        "justification": string      // Justification for the technical quality assessment
    },
`
	if includeTranscript {
		technicalQuality = ""
	}

	return `{
    "complianceScore": number, // Score from 0-10 based on the standard communication scoring system
    "overallFeedback": string,   // 2-5 sentences of the compliance summary
    "emotionalAnalysis": {       // Analysis of emotional tones
        "predominantEmotion": string, // Name of the predominant emotion
        "justification": string // Justification of the emotional analysis
    },
    "communicationTone": {       // Assessment of communication tone
        "professionalTone": boolean, // Whether the tone was professional (true or false)
        "empatheticTone": boolean,   // Whether the tone was empathetic (true or false)
        "appropriateTone": boolean,   // Whether the tone was appropriate (true or false)
        "justification": string       // Justification for the tone assessment
    },
` + technicalQuality + `    "doChecklistResults": {         // Results of the content checklist
        "1": { "property": string, "result": boolean, "justification": string },
        "2": { "property": string, "result": boolean, "justification": string }
    },
    "dontChecklistResults": {         // Results of the forbidden-content checklist
        "1": { "property": string, "result": boolean, "justification": string },
        "2": { "property": string, "result": boolean, "justification": string }
    },
    "strengths": [string],       // List of communication strengths demonstrated (if existing)
    "improvementAreas": [string] // List of areas where communication could be improved (if existing)
}`
}
