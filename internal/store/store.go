// Package store persists flattened analysis rows to Postgres. The pipeline
// never talks to it directly; it is wired into the sink as its optional
// ResultStore.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/callsight-ai/callsight/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the results table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_results (
			id                     uuid PRIMARY KEY,
			campaign               text NOT NULL,
			file_name              text NOT NULL,
			transcription          text,
			compliance_score       double precision,
			overall_feedback       text,
			predominant_emotion    text,
			professional_tone      boolean,
			empathetic_tone        boolean,
			appropriate_tone       boolean,
			tone_justification     text,
			adequate_audio_quality boolean,
			do_checklist_results   jsonb,
			dont_checklist_results jsonb,
			strengths              text[],
			improvement_areas      text[],
			raw_response           text,
			model                  text NOT NULL,
			checklist_items        int NOT NULL,
			dont_checklist_items   int NOT NULL,
			created_at             timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveResult writes one flattened row. A raw-fallback result stores the raw
// response text and leaves the typed columns null.
func (s *Store) SaveResult(ctx context.Context, item model.AudioItem, result *model.AnalysisResult) error {
	row := struct {
		complianceScore      *float64
		overallFeedback      *string
		predominantEmotion   *string
		professionalTone     *bool
		empatheticTone       *bool
		appropriateTone      *bool
		toneJustification    *string
		adequateAudioQuality *bool
		doChecklistResults   []byte
		dontChecklistResults []byte
		strengths            []string
		improvementAreas     []string
		rawResponse          *string
	}{}

	if report := result.Results.Report; report != nil {
		row.complianceScore = &report.ComplianceScore
		row.overallFeedback = &report.OverallFeedback
		row.predominantEmotion = &report.EmotionalAnalysis.PredominantEmotion
		row.professionalTone = &report.CommunicationTone.ProfessionalTone
		row.empatheticTone = &report.CommunicationTone.EmpatheticTone
		row.appropriateTone = &report.CommunicationTone.AppropriateTone
		row.toneJustification = &report.CommunicationTone.Justification
		// Technical quality only exists for direct-audio analyses; a nil
		// transcription marks those.
		if result.Transcription == nil {
			row.adequateAudioQuality = &report.TechnicalQuality.AdequateQuality
		}
		row.strengths = report.Strengths
		row.improvementAreas = report.ImprovementAreas

		var err error
		if row.doChecklistResults, err = json.Marshal(report.DoChecklistResults); err != nil {
			return fmt.Errorf("marshal do checklist results: %w", err)
		}
		if row.dontChecklistResults, err = json.Marshal(report.DontChecklistResults); err != nil {
			return fmt.Errorf("marshal dont checklist results: %w", err)
		}
	} else {
		row.rawResponse = &result.Results.Raw
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_results (
			id, campaign, file_name, transcription,
			compliance_score, overall_feedback, predominant_emotion,
			professional_tone, empathetic_tone, appropriate_tone, tone_justification,
			adequate_audio_quality,
			do_checklist_results, dont_checklist_results,
			strengths, improvement_areas, raw_response,
			model, checklist_items, dont_checklist_items
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		uuid.New(), item.Campaign, item.File, result.Transcription,
		row.complianceScore, row.overallFeedback, row.predominantEmotion,
		row.professionalTone, row.empatheticTone, row.appropriateTone, row.toneJustification,
		row.adequateAudioQuality,
		row.doChecklistResults, row.dontChecklistResults,
		row.strengths, row.improvementAreas, row.rawResponse,
		result.Metadata.Model, result.Metadata.ChecklistItems, result.Metadata.DontChecklistItems,
	)
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

// ResultRow is the queryable shape of one stored result.
type ResultRow struct {
	ID              uuid.UUID
	Campaign        string
	FileName        string
	ComplianceScore *float64
	OverallFeedback *string
	Model           string
}

// ResultsByCampaign returns the stored rows of one campaign, newest first.
func (s *Store) ResultsByCampaign(ctx context.Context, campaignName string) ([]ResultRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign, file_name, compliance_score, overall_feedback, model
		FROM analysis_results
		WHERE campaign = $1
		ORDER BY created_at DESC`,
		campaignName,
	)
	if err != nil {
		return nil, fmt.Errorf("query analysis results: %w", err)
	}
	defer rows.Close()

	results := make([]ResultRow, 0, 16)
	for rows.Next() {
		row := ResultRow{}
		if err := rows.Scan(&row.ID, &row.Campaign, &row.FileName,
			&row.ComplianceScore, &row.OverallFeedback, &row.Model); err != nil {
			return nil, fmt.Errorf("scan analysis result: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis results: %w", err)
	}
	return results, nil
}
