package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/callsight-ai/callsight/internal/ai"
	"github.com/callsight-ai/callsight/internal/campaign"
	"github.com/callsight-ai/callsight/internal/config"
	"github.com/callsight-ai/callsight/internal/events"
	"github.com/callsight-ai/callsight/internal/logging"
	"github.com/callsight-ai/callsight/internal/model"
	"github.com/callsight-ai/callsight/internal/pipeline"
	"github.com/callsight-ai/callsight/internal/server"
	"github.com/callsight-ai/callsight/internal/sink"
	"github.com/callsight-ai/callsight/internal/store"
	"github.com/callsight-ai/callsight/internal/watch"
)

func main() {
	campaignName := flag.String("campaign", "", "process a single campaign instead of all of them")
	watchMode := flag.Bool("watch", false, "keep running and process recordings as they arrive")
	serveMode := flag.Bool("serve", false, "expose the HTTP webhook and NATS subscriber")
	flag.Parse()

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.NewLogger(ctx)

	app, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup_failed error=%v", err)
	}
	defer cleanup()

	switch {
	case *serveMode:
		err = app.serve(ctx)
	case *watchMode:
		err = app.watch(ctx)
	case *campaignName != "":
		err = app.runCampaign(ctx, *campaignName)
	default:
		err = app.runAll(ctx)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatalf("run_failed error=%v", err)
	}
}

type app struct {
	cfg         config.Config
	coordinator *pipeline.Coordinator
}

func newApp(ctx context.Context, cfg config.Config) (*app, func(), error) {
	log := logging.NewLogger(ctx)
	cleanup := func() {}

	transcriber, err := ai.NewTranscriber(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("transcriber: %w", err)
	}
	analyzer, err := ai.NewAnalyzer(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("analyzer: %w", err)
	}
	anonymizer, err := ai.NewAnonymizer(cfg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("anonymizer: %w", err)
	}

	var resultStore sink.ResultStore
	if cfg.DBEngine == "postgres" && cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("store: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, cleanup, err
		}
		cleanup = db.Close
		resultStore = db
		log.Infof("database_connected")
	}

	resultSink, err := sink.New(sink.Config{
		ProcessedDir: cfg.ProcessedDir,
		Store:        resultStore,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("sink: %w", err)
	}

	coordinator, err := pipeline.New(analyzer, resultSink, pipeline.Options{
		Transcriber:      transcriber,
		Anonymizer:       anonymizer,
		AnonymizeEnabled: cfg.AnonymizeEnabled,
		BatchSize:        cfg.BatchSize,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("pipeline: %w", err)
	}

	return &app{cfg: cfg, coordinator: coordinator}, cleanup, nil
}

// runAll processes every campaign under the campaigns directory, one
// campaign at a time.
func (a *app) runAll(ctx context.Context) error {
	log := logging.NewLogger(ctx)

	names, err := campaign.List(a.cfg.CampaignsDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Warnf("no_campaigns dir=%q", a.cfg.CampaignsDir)
		return nil
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := a.runCampaign(ctx, name); err != nil {
			// A campaign with a broken checklist must not block the others.
			log.Errorf("campaign_failed campaign=%q error=%v", name, err)
		}
	}
	return nil
}

func (a *app) runCampaign(ctx context.Context, name string) error {
	log := logging.NewLogger(ctx)

	job, err := campaign.Load(a.cfg.CampaignsDir, name)
	if err != nil {
		return err
	}
	if len(job.Items) == 0 {
		log.Infof("campaign_empty campaign=%q", name)
		return nil
	}

	log.Infof("campaign_started campaign=%q items=%d batch_size=%d", name, len(job.Items), a.cfg.BatchSize)
	outcomes := a.coordinator.Run(ctx, job.Checklist.Options(), job.Items)

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			succeeded++
		}
	}
	log.Infof("campaign_finished campaign=%q succeeded=%d failed=%d", name, succeeded, len(outcomes)-succeeded)

	if a.cfg.ExportXLSX {
		summaryPath := filepath.Join(a.cfg.ProcessedDir, name, "summary.xlsx")
		if err := sink.ExportSummary(summaryPath, name, summaryRows(outcomes)); err != nil {
			log.Errorf("summary_export_failed campaign=%q error=%v", name, err)
		} else {
			log.Infof("summary_exported campaign=%q path=%q", name, summaryPath)
		}
	}
	return nil
}

// handleItem settles one recording that arrived outside batch mode. The
// campaign checklist is reloaded per item so checklist edits between
// arrivals take effect.
func (a *app) handleItem(ctx context.Context, item model.AudioItem) {
	log := logging.NewLogger(ctx)

	checklist, err := campaign.LoadChecklist(a.cfg.CampaignsDir, item.Campaign)
	if err != nil {
		log.Errorf("checklist_load_failed campaign=%q file=%q error=%v", item.Campaign, item.File, err)
		return
	}
	a.coordinator.ProcessItem(ctx, checklist.Options(), item)
}

func (a *app) watch(ctx context.Context) error {
	watcher, err := watch.New(a.cfg.CampaignsDir, a.handleItem)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// serve runs the HTTP webhook, plus the NATS subscriber when a broker is
// configured.
func (a *app) serve(ctx context.Context) error {
	log := logging.NewLogger(ctx)

	if a.cfg.NatsURL != "" {
		client, err := events.NewClient(ctx, a.cfg.NatsURL, a.cfg.NatsToken)
		if err != nil {
			return err
		}
		defer client.Close()

		err = client.SubscribeStorageEvents(ctx, a.cfg.StorageEventsSubject, a.cfg.CampaignsDir, a.handleItem)
		if err != nil {
			return err
		}
		log.Infof("nats_connected url=%q subject=%q", a.cfg.NatsURL, a.cfg.StorageEventsSubject)
	}

	srv := server.New(a.cfg.Port, a.cfg.CampaignsDir, a.handleItem)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func summaryRows(outcomes []pipeline.Outcome) []sink.SummaryRow {
	rows := make([]sink.SummaryRow, 0, len(outcomes))
	for _, outcome := range outcomes {
		row := sink.SummaryRow{File: outcome.Item.File, Status: string(outcome.State)}
		if outcome.Err != nil {
			row.Error = outcome.Err.Error()
		}
		if outcome.Result != nil && outcome.Result.Results.Report != nil {
			report := outcome.Result.Results.Report
			row.ComplianceScore = &report.ComplianceScore
			row.OverallFeedback = report.OverallFeedback
			row.PredominantEmotion = report.EmotionalAnalysis.PredominantEmotion
			row.ProfessionalTone = &report.CommunicationTone.ProfessionalTone
			row.EmpatheticTone = &report.CommunicationTone.EmpatheticTone
		}
		rows = append(rows, row)
	}
	return rows
}
