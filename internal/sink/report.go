package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/utils"
)

const noTranscriptionMarker = "(none)"

// Report is the on-disk text rendition of one analysis result, written next
// to the relocated recording.
type Report struct {
	File          string
	Campaign      string
	Model         string
	Processed     string
	Transcription *string
	Results       model.Results
}

func buildReport(item model.AudioItem, result *model.AnalysisResult) Report {
	return Report{
		File:          item.File,
		Campaign:      item.Campaign,
		Model:         result.Metadata.Model,
		Processed:     time.Now().UTC().Format(time.RFC3339),
		Transcription: result.Transcription,
		Results:       result.Results,
	}
}

// WriteReport renders the report to w: a short header block, the transcript,
// then the results as indented JSON. The format round-trips through
// ReadReport.
func WriteReport(w io.Writer, report Report) error {
	resultsBits, err := json.MarshalIndent(report.Results, "", "  ")
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	transcription := noTranscriptionMarker
	if report.Transcription != nil {
		transcription = *report.Transcription
	}

	_, err = fmt.Fprintf(w,
		"File: %s\nCampaign: %s\nModel: %s\nProcessed: %s\n\nTranscription:\n%s\n\nResults:\n%s\n",
		report.File, report.Campaign, report.Model, report.Processed, transcription, resultsBits)
	return utils.WrapIfNotNil(err)
}

// ReadReport parses a report previously written by WriteReport.
func ReadReport(path string) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, utils.WrapIfNotNil(err)
	}
	defer file.Close()

	report := Report{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	section := ""
	transcriptLines := make([]string, 0, 8)
	resultLines := make([]string, 0, 32)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case section == "" && strings.HasPrefix(line, "File: "):
			report.File = strings.TrimPrefix(line, "File: ")
		case section == "" && strings.HasPrefix(line, "Campaign: "):
			report.Campaign = strings.TrimPrefix(line, "Campaign: ")
		case section == "" && strings.HasPrefix(line, "Model: "):
			report.Model = strings.TrimPrefix(line, "Model: ")
		case section == "" && strings.HasPrefix(line, "Processed: "):
			report.Processed = strings.TrimPrefix(line, "Processed: ")
		case line == "Transcription:":
			section = "transcription"
		case line == "Results:":
			section = "results"
		case section == "transcription":
			transcriptLines = append(transcriptLines, line)
		case section == "results":
			resultLines = append(resultLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, utils.WrapIfNotNil(err)
	}

	transcript := strings.TrimSpace(strings.Join(transcriptLines, "\n"))
	if transcript != noTranscriptionMarker {
		report.Transcription = model.StringPtr(transcript)
	}

	resultsText := strings.TrimSpace(strings.Join(resultLines, "\n"))
	if resultsText == "" {
		return Report{}, utils.WrapIfNotNil(fmt.Errorf("%w: report has no results section", model.ErrInvalidInput))
	}
	if err := json.Unmarshal([]byte(resultsText), &report.Results); err != nil {
		return Report{}, utils.WrapIfNotNil(err)
	}
	return report, nil
}
