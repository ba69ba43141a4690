// Command supportcore opens the configured persistent store, applies the
// dictionary seeds, and prints an overview snapshot of the tracked projects
// and evolution items. With -export it additionally renders a report rollup
// into the configured blob store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"supportcore/internal/analytics"
	"supportcore/internal/assist"
	"supportcore/internal/blob"
	"supportcore/internal/config"
	"supportcore/internal/core"
	"supportcore/internal/reports"
	"supportcore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("supportcore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		exportKind string
		actor      string
		rank       bool
	)
	fs.StringVar(&exportKind, "export", "", "render a report rollup (overview|attribution|funnel)")
	fs.StringVar(&actor, "actor", "cli", "actor identity recorded in the audit trail")
	fs.BoolVar(&rank, "rank", false, "rank evolution items with the text service and persist the order")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))
	ctx := context.Background()

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store", "error", err)
		return 1
	}

	seeds, err := config.SeedsFromEnv()
	if err != nil {
		logger.Error("load seeds", "error", err)
		return 1
	}
	if err := seeds.Apply(ctx, store); err != nil {
		logger.Error("apply seeds", "error", err)
		return 1
	}

	service := core.NewService(store, core.WithLogger(core.NewSlogLogger(logger)))

	if rank {
		// Ranking failures degrade to keeping the current order.
		if err := rankItems(ctx, service, actor); err != nil {
			logger.Warn("ranking skipped", "error", err)
		}
	}

	overview := analytics.BuildOverview(service.Projects(), service.EvolutionItems(), service.Dictionaries().Stages)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(overview); err != nil {
		logger.Error("encode overview", "error", err)
		return 1
	}

	if exportKind == "" {
		return 0
	}
	if err := runExport(ctx, store, logger, reports.Kind(exportKind), actor, stdout); err != nil {
		logger.Error("export report", "error", err)
		return 1
	}
	return 0
}

func rankItems(ctx context.Context, service *core.Service, actor string) error {
	gen, err := assist.NewOpenAIGenerator()
	if err != nil {
		return err
	}
	ranked, err := assist.New(gen).Rank(ctx, service.EvolutionItems())
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		return nil
	}
	_, _, err = service.RankEvolutionItems(ctx, actor, ranked)
	return err
}

func runExport(ctx context.Context, store domain.PersistentStore, logger *slog.Logger, kind reports.Kind, actor string, stdout io.Writer) error {
	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	worker := reports.NewWorker(store, blobs, reports.WithLogger(core.NewSlogLogger(logger)))
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	record, err := worker.Enqueue(ctx, reports.Input{Kind: kind, RequestedBy: actor})
	if err != nil {
		return err
	}
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		current, ok := worker.Get(record.ID)
		if !ok {
			return fmt.Errorf("export %s vanished", record.ID)
		}
		switch current.Status {
		case reports.StatusSucceeded:
			for _, artifact := range current.Artifacts {
				fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", artifact.Key, artifact.SizeBytes)
			}
			return nil
		case reports.StatusFailed:
			return fmt.Errorf("export failed: %s", current.Error)
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("export %s timed out", record.ID)
}
