package campaign

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/utils"
)

const (
	checklistFileName = "checklist.txt"
	audiosDirName     = "audios"
)

// Extensions accepted when enumerating a campaign's audio directory. Files
// outside this set are ignored in batch mode; provider preconditions reject
// them again at the pipeline boundary.
var sourceFormats = map[string]bool{
	"mp3": true,
	"wav": true,
	"m4a": true,
	"mp4": true,
}

// Checklist is a campaign's parsed checklist definition: the analysis
// language plus the ordered do/don't directives. Loaded once per run and
// never mutated afterwards.
type Checklist struct {
	Language      string
	DoChecklist   []string
	DontChecklist []string
}

// Options adapts the checklist to the analyzer contract.
func (c Checklist) Options() model.ChecklistOptions {
	return model.ChecklistOptions{
		DoChecklist:   c.DoChecklist,
		DontChecklist: c.DontChecklist,
		Language:      c.Language,
	}
}

// Campaign is a named unit of work: one checklist and the recordings queued
// under its audios directory.
type Campaign struct {
	Name      string
	Checklist Checklist
	Items     []model.AudioItem
}

// ParseChecklist reads a checklist definition: line 1 is the language code,
// then "# DO" / "# DONT" section markers (case-insensitive) switch which list
// the following lines append to. Lines are trimmed and blanks dropped.
func ParseChecklist(r io.Reader) (Checklist, error) {
	scanner := bufio.NewScanner(r)

	lines := make([]string, 0, 16)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return Checklist{}, utils.WrapIfNotNil(err)
	}
	if len(lines) == 0 {
		return Checklist{}, utils.WrapIfNotNil(fmt.Errorf("%w: checklist is empty", model.ErrInvalidInput))
	}

	checklist := Checklist{Language: lines[0]}
	section := ""
	for _, line := range lines[1:] {
		switch strings.ToUpper(line) {
		case "# DO":
			section = "do"
			continue
		case "# DONT":
			section = "dont"
			continue
		}
		switch section {
		case "do":
			checklist.DoChecklist = append(checklist.DoChecklist, line)
		case "dont":
			checklist.DontChecklist = append(checklist.DontChecklist, line)
		}
	}
	return checklist, nil
}

// LoadChecklist parses campaigns/<name>/checklist.txt.
func LoadChecklist(campaignsDir, name string) (Checklist, error) {
	path := filepath.Join(campaignsDir, name, checklistFileName)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checklist{}, utils.WrapIfNotNil(
				fmt.Errorf("%w: no %s found for campaign %s", model.ErrInvalidInput, checklistFileName, name))
		}
		return Checklist{}, utils.WrapIfNotNil(err)
	}
	defer file.Close()

	return ParseChecklist(file)
}

// List returns the campaign folder names under campaignsDir, sorted.
func List(campaignsDir string) ([]string, error) {
	entries, err := os.ReadDir(campaignsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, utils.WrapIfNotNil(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Audios enumerates the allow-listed recordings of one campaign, in
// directory order, as AudioItems.
func Audios(campaignsDir, name string) ([]model.AudioItem, error) {
	dir := filepath.Join(campaignsDir, name, audiosDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, utils.WrapIfNotNil(err)
	}

	items := make([]model.AudioItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsAudioFile(entry.Name()) {
			continue
		}
		items = append(items, model.AudioItem{
			Campaign: name,
			File:     entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
		})
	}
	return items, nil
}

// IsAudioFile reports whether name carries one of the source allow-list
// extensions.
func IsAudioFile(name string) bool {
	return sourceFormats[model.Extension(name)]
}

// AudioDir returns the audios directory of one campaign.
func AudioDir(campaignsDir, name string) string {
	return filepath.Join(campaignsDir, name, audiosDirName)
}

// Load assembles a campaign: its checklist plus the pending recordings.
func Load(campaignsDir, name string) (Campaign, error) {
	checklist, err := LoadChecklist(campaignsDir, name)
	if err != nil {
		return Campaign{}, err
	}
	items, err := Audios(campaignsDir, name)
	if err != nil {
		return Campaign{}, err
	}
	return Campaign{Name: name, Checklist: checklist, Items: items}, nil
}
