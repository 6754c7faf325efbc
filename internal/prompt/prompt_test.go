package prompt

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/callsight-ai/callsight/internal/model"
)

type PromptSuite struct {
	suite.Suite
}

func TestPromptSuite(t *testing.T) {
	suite.Run(t, new(PromptSuite))
}

func (s *PromptSuite) TestLanguageNameKnownCodes() {
	name, err := LanguageName("en")
	s.NoError(err)
	s.Equal("English", name)

	name, err = LanguageName(" ES ")
	s.NoError(err)
	s.Equal("Spanish", name)
}

func (s *PromptSuite) TestLanguageNameDefaultsToSpanish() {
	name, err := LanguageName("")
	s.NoError(err)
	s.Equal("Spanish", name)
}

func (s *PromptSuite) TestLanguageNameUnknownCode() {
	_, err := LanguageName("xx")
	s.ErrorIs(err, model.ErrInvalidLanguage)
}

func (s *PromptSuite) TestBuildInstructionsAudioPath() {
	instructions, err := BuildInstructions("en", []string{"greet the customer"}, []string{"promise discounts"}, "")
	s.Require().NoError(err)

	s.Equal(systemMessage, instructions.SystemMessage)
	s.Contains(instructions.Prompt, "Given this call audio")
	s.Contains(instructions.Prompt, TechnicalQualityMarker)
	s.Contains(instructions.Prompt, `"technicalQuality"`)
	s.Contains(instructions.Prompt, "1. greet the customer")
	s.Contains(instructions.Prompt, "1. promise discounts")
	s.Contains(instructions.Prompt, "Submit your answers and justifications in English.")
	s.Contains(instructions.Prompt, SensitivePlaceholder)
	s.NotContains(instructions.Prompt, "audio quality analysis does not apply")
}

func (s *PromptSuite) TestBuildInstructionsTranscriptPath() {
	instructions, err := BuildInstructions("es", []string{"greet the customer"}, nil, "hola, buenos dias")
	s.Require().NoError(err)

	s.Contains(instructions.Prompt, `Given the following call transcript: "hola, buenos dias"`)
	s.NotContains(instructions.Prompt, TechnicalQualityMarker)
	s.NotContains(instructions.Prompt, `"technicalQuality"`)
	s.Contains(instructions.Prompt, "You are analyzing a transcript, so the audio quality analysis does not apply.")
	s.Contains(instructions.Prompt, "present in the transcription")
	s.Contains(instructions.Prompt, "Submit your answers and justifications in Spanish.")
}

func (s *PromptSuite) TestBuildInstructionsPure() {
	first, err := BuildInstructions("en", []string{"a", "b"}, []string{"c"}, "some transcript")
	s.Require().NoError(err)
	second, err := BuildInstructions("en", []string{"a", "b"}, []string{"c"}, "some transcript")
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *PromptSuite) TestBuildInstructionsUnknownLanguage() {
	_, err := BuildInstructions("zz", []string{"a"}, nil, "")
	s.ErrorIs(err, model.ErrInvalidLanguage)
}

func (s *PromptSuite) TestChecklistEnumerationIsOneBased() {
	instructions, err := BuildInstructions("en", []string{"first", "second", "third"}, nil, "")
	s.Require().NoError(err)
	s.Contains(instructions.Prompt, "1. first\n2. second\n3. third")
}
