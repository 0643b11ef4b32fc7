package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/poiesic/semsearch"
	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/backfill"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/search"
	"github.com/urfave/cli/v2"
)

// maxListedFailures bounds the per-item failures printed after a backfill.
const maxListedFailures = 10

func openEngine(c *cli.Context) (*semsearch.Engine, error) {
	engine, err := semsearch.Open(c.String("db"), semsearch.WithAIConfig(aiConfigFromFlags(c)))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return engine, nil
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt)
}

func importCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("import takes exactly one catalog file argument")
	}
	items, err := loadCatalog(c.Args().First())
	if err != nil {
		return err
	}

	ctx, stop := commandContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	fresh, replacing, err := partitionByCode(ctx, engine.Items(), items)
	if err != nil {
		return err
	}

	if c.Bool("no-embed") {
		if _, err := engine.Items().AddItems(ctx, fresh...); err != nil {
			return fmt.Errorf("failed to add items: %w", err)
		}
		if _, err := engine.Items().UpdateItems(ctx, replacing...); err != nil {
			return fmt.Errorf("failed to update items: %w", err)
		}
	} else {
		if err := ingestCatalog(ctx, engine, fresh, replacing); err != nil {
			return err
		}
	}

	total, withVector, err := engine.Items().CountItems(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %d new and %d updated items\n", len(fresh), len(replacing))
	fmt.Fprintf(c.App.Writer, "Catalog: %d items, %d embedded\n", total, withVector)
	return nil
}

func ingestCatalog(ctx context.Context, engine *semsearch.Engine, fresh, replacing []*core.Item) error {
	if _, err := engine.Reconcile(ctx); err != nil {
		return fmt.Errorf("failed to reconcile corpus: %w", err)
	}

	pipeline, err := engine.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	if _, err := pipeline.Ingest(ctx, fresh...); err != nil {
		return fmt.Errorf("failed to add items: %w", err)
	}
	if _, err := pipeline.Update(ctx, replacing...); err != nil {
		return fmt.Errorf("failed to update items: %w", err)
	}
	pipeline.Wait()
	return ctx.Err()
}

func backfillCommand(c *cli.Context) error {
	config, err := backfillConfigFromFlags(c)
	if err != nil {
		return err
	}

	ctx, stop := commandContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	provider := engine.Provider()
	if !provider.IsAvailable() {
		return fmt.Errorf("%w: %s", ai.ErrProviderUnavailable, provider.Name())
	}

	out := c.App.Writer
	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", c.String("db"))
	fmt.Fprintf(c.App.ErrWriter, "Provider: %s (%d dimensions)\n", provider.Name(), provider.Dimension())
	fmt.Fprintln(c.App.ErrWriter)

	reconciled, err := engine.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile corpus: %w", err)
	}
	if reconciled.Stale {
		fmt.Fprintf(out, "Provider changed; cleared %d stored vectors\n", reconciled.Cleared)
	}

	backfiller, err := engine.NewBackfiller(config, c.App.ErrWriter)
	if err != nil {
		return err
	}
	summary, err := backfiller.Run(ctx)
	if summary != nil {
		printSummary(out, summary)
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, summary *backfill.Summary) {
	fmt.Fprintf(w, "Generated %d, skipped %d, failed %d in %s\n",
		summary.Generated, summary.Skipped, summary.Failed, formatDuration(summary.Elapsed))
	for i, failure := range summary.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(summary.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(w, "  %s: %v\n", failure.Code, failure.Err)
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")

	ctx, stop := commandContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []search.Option
	if timeout := c.Duration("timeout"); timeout > 0 {
		opts = append(opts, search.WithQueryTimeout(timeout))
	}
	searcher, err := engine.NewSearcher(opts...)
	if err != nil {
		return err
	}

	resp, err := searcher.Search(ctx, query,
		search.WithLimit(c.Int("limit")),
		search.WithThreshold(c.Float64("threshold")),
	)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Found %d of %d hits in %s\n",
		len(resp.Results), resp.TotalResults, formatDuration(resp.ExecutionTime))
	for _, hit := range resp.Results {
		item := hit.Item
		fmt.Fprintf(c.App.Writer, "%d: %s '%s' [%0.3f]\n", hit.Rank, item.Code, item.Name, hit.Similarity)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx, stop := commandContext(c)
	defer stop()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	total, withVector, err := engine.Items().CountItems(ctx)
	if err != nil {
		return err
	}
	stamp, err := engine.Stamps().LoadStamp(ctx)
	if err != nil {
		return err
	}
	desc := ai.Describe(engine.Provider())

	out := c.App.Writer
	fmt.Fprintf(out, "Items:    %d (%d embedded, %d pending)\n", total, withVector, total-withVector)
	fmt.Fprintf(out, "Provider: %s, %d dimensions, available=%t\n", desc.Name, desc.Dimension, desc.Available)
	if stamp == nil {
		fmt.Fprintln(out, "Corpus:   not stamped")
		return nil
	}
	fmt.Fprintf(out, "Corpus:   %s, %d dimensions, updated %s\n",
		stamp.Provider, stamp.Dimension, stamp.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if !stamp.Matches(desc.Name, desc.Dimension) {
		fmt.Fprintln(out, "Corpus vectors were produced by another provider; run backfill to re-embed")
	}
	return nil
}
