package campaign

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/callsight-ai/callsight/internal/model"
)

type CampaignSuite struct {
	suite.Suite
}

func TestCampaignSuite(t *testing.T) {
	suite.Run(t, new(CampaignSuite))
}

const sampleChecklist = `es

# DO
Greet the customer by name
Confirm the contract number

# DONT
Promise discounts
`

func (s *CampaignSuite) TestParseChecklist() {
	checklist, err := ParseChecklist(strings.NewReader(sampleChecklist))
	s.Require().NoError(err)

	s.Equal("es", checklist.Language)
	s.Equal([]string{"Greet the customer by name", "Confirm the contract number"}, checklist.DoChecklist)
	s.Equal([]string{"Promise discounts"}, checklist.DontChecklist)
}

func (s *CampaignSuite) TestParseChecklistSectionMarkersAreCaseInsensitive() {
	checklist, err := ParseChecklist(strings.NewReader("en\n# do\nitem one\n# dont\nitem two\n"))
	s.Require().NoError(err)
	s.Equal([]string{"item one"}, checklist.DoChecklist)
	s.Equal([]string{"item two"}, checklist.DontChecklist)
}

func (s *CampaignSuite) TestParseChecklistIgnoresLinesBeforeSections() {
	checklist, err := ParseChecklist(strings.NewReader("en\nstray line\n# DO\nreal item\n"))
	s.Require().NoError(err)
	s.Equal([]string{"real item"}, checklist.DoChecklist)
	s.Empty(checklist.DontChecklist)
}

func (s *CampaignSuite) TestParseChecklistEmpty() {
	_, err := ParseChecklist(strings.NewReader("\n\n  \n"))
	s.ErrorIs(err, model.ErrInvalidInput)
}

func (s *CampaignSuite) TestChecklistOptions() {
	checklist := Checklist{
		Language:      "en",
		DoChecklist:   []string{"a"},
		DontChecklist: []string{"b"},
	}
	opts := checklist.Options()
	s.Equal("en", opts.Language)
	s.Equal([]string{"a"}, opts.DoChecklist)
	s.Equal([]string{"b"}, opts.DontChecklist)
}

func (s *CampaignSuite) TestIsAudioFile() {
	s.True(IsAudioFile("call.mp3"))
	s.True(IsAudioFile("call.WAV"))
	s.True(IsAudioFile("call.m4a"))
	s.False(IsAudioFile("call.txt"))
	s.False(IsAudioFile("checklist"))
}

func (s *CampaignSuite) seedCampaign(root, name string) {
	audios := filepath.Join(root, name, "audios")
	s.Require().NoError(os.MkdirAll(audios, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(root, name, "checklist.txt"), []byte(sampleChecklist), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(audios, "call1.mp3"), []byte("x"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(audios, "call2.wav"), []byte("x"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(audios, "notes.txt"), []byte("x"), 0o644))
}

func (s *CampaignSuite) TestLoad() {
	root := s.T().TempDir()
	s.seedCampaign(root, "summer")

	job, err := Load(root, "summer")
	s.Require().NoError(err)

	s.Equal("summer", job.Name)
	s.Equal("es", job.Checklist.Language)
	s.Require().Len(job.Items, 2)
	s.Equal("call1.mp3", job.Items[0].File)
	s.Equal("summer", job.Items[0].Campaign)
	s.Equal(filepath.Join(root, "summer", "audios", "call1.mp3"), job.Items[0].Path)
}

func (s *CampaignSuite) TestLoadMissingChecklist() {
	root := s.T().TempDir()
	s.Require().NoError(os.MkdirAll(filepath.Join(root, "bare", "audios"), 0o755))

	_, err := Load(root, "bare")
	s.ErrorIs(err, model.ErrInvalidInput)
	s.Contains(err.Error(), "no checklist.txt found")
}

func (s *CampaignSuite) TestListSorted() {
	root := s.T().TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		s.Require().NoError(os.MkdirAll(filepath.Join(root, name), 0o755))
	}
	s.Require().NoError(os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	names, err := List(root)
	s.Require().NoError(err)
	s.Equal([]string{"alpha", "mid", "zeta"}, names)
}

func (s *CampaignSuite) TestListMissingDir() {
	names, err := List(filepath.Join(s.T().TempDir(), "nope"))
	s.NoError(err)
	s.Nil(names)
}

func (s *CampaignSuite) TestAudiosMissingDir() {
	root := s.T().TempDir()
	s.Require().NoError(os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	items, err := Audios(root, "empty")
	s.NoError(err)
	s.Empty(items)
}
