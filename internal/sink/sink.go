// Package sink settles finished pipeline items: it writes the human-readable
// report, optionally persists a database row, and relocates the recording so
// it is never picked up twice.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/utils"
)

const failedDirName = "failed"

// ResultStore persists one flattened result row. A nil store means
// file-only operation.
type ResultStore interface {
	SaveResult(ctx context.Context, item model.AudioItem, result *model.AnalysisResult) error
}

type Config struct {
	// ProcessedDir is the root the relocated recordings land under, one
	// subdirectory per campaign.
	ProcessedDir string
	Store        ResultStore
}

// FileSink is the default sink: report file plus relocation, with an
// optional database row.
type FileSink struct {
	processedDir string
	store        ResultStore
}

func New(cfg Config) (*FileSink, error) {
	if strings.TrimSpace(cfg.ProcessedDir) == "" {
		return nil, errors.New("processed directory is required")
	}
	return &FileSink{processedDir: cfg.ProcessedDir, store: cfg.Store}, nil
}

// SaveResult persists the outcome and moves the recording under
// processed/<campaign>/. The database row is written before the move so a
// persistence failure leaves the file in place for the failure path.
func (s *FileSink) SaveResult(ctx context.Context, item model.AudioItem, result *model.AnalysisResult) error {
	log := logging.NewLogger(ctx)

	if s.store != nil {
		if err := s.store.SaveResult(ctx, item, result); err != nil {
			return utils.WrapIfNotNil(err)
		}
	}

	destDir := filepath.Join(s.processedDir, item.Campaign)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return utils.WrapIfNotNil(err)
	}

	reportPath := filepath.Join(destDir, item.File+".report.txt")
	file, err := os.Create(reportPath)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}
	if err := WriteReport(file, buildReport(item, result)); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return utils.WrapIfNotNil(err)
	}

	if err := MoveFile(item.Path, filepath.Join(destDir, item.File)); err != nil {
		return err
	}

	log.Infof("result_saved campaign=%q file=%q report=%q", item.Campaign, item.File, reportPath)
	return nil
}

// SaveFailure records the error next to the recording under
// processed/<campaign>/failed/ and moves the recording there. A source file
// that already disappeared is not an error; the log record still lands.
func (s *FileSink) SaveFailure(ctx context.Context, item model.AudioItem, failure error) error {
	log := logging.NewLogger(ctx)

	failedDir := filepath.Join(s.processedDir, item.Campaign, failedDirName)
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return utils.WrapIfNotNil(err)
	}

	record := fmt.Sprintf("File: %s\nCampaign: %s\nFailed: %s\nError: %v\n",
		item.File, item.Campaign, time.Now().UTC().Format(time.RFC3339), failure)
	logPath := filepath.Join(failedDir, item.File+".log")
	if err := os.WriteFile(logPath, []byte(record), 0o644); err != nil {
		return utils.WrapIfNotNil(err)
	}

	if _, err := os.Stat(item.Path); err == nil {
		if err := MoveFile(item.Path, filepath.Join(failedDir, item.File)); err != nil {
			return err
		}
	}

	log.Warnf("failure_saved campaign=%q file=%q log=%q", item.Campaign, item.File, logPath)
	return nil
}
