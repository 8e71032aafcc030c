package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/policygraph"
	"github.com/poiesic/policygraph/ingestion"
	"github.com/poiesic/policygraph/qa"
	"github.com/poiesic/policygraph/search"
	"github.com/urfave/cli/v2"
)

// errUsage marks bad command arguments.
var errUsage = errors.New("usage")

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Load a segmented policy document and embed its sub-chunks",
		ArgsUsage: "<document.json>",
		Flags:     []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: ingest requires exactly one document path", errUsage)
			}
			doc, err := ingestion.LoadDocumentFile(c.Args().First())
			if err != nil {
				return err
			}

			return withDatabase(c, func(db *policygraph.Database) error {
				pipeline, err := db.NewIngestionPipeline(ingestion.WithProgress(func(p ingestion.Progress) {
					fmt.Fprintf(c.App.ErrWriter, "\rEmbedded %d/%d sub-chunks", p.Embedded, p.Total)
				}))
				if err != nil {
					return err
				}
				defer pipeline.Release()

				result, err := pipeline.Ingest(c.Context, doc)
				fmt.Fprintln(c.App.ErrWriter)
				if err != nil {
					return fmt.Errorf("ingestion failed: %w", err)
				}
				if c.Bool("json") {
					return writeJSON(c.App.Writer, result)
				}
				fmt.Fprintf(c.App.Writer, "Ingested policy version %s: %d clauses, %d sub-chunks (%d embedded), %d special clauses, %d references in %s\n",
					result.PolicyVersion, result.Clauses, result.SubChunks, result.Embedded, result.SpecialClauses, result.References, result.Elapsed)
				return nil
			})
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Answer a question about the policy with citations",
		ArgsUsage: "<question>",
		Flags:     []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("%w: query requires a question", errUsage)
			}

			return withDatabase(c, func(db *policygraph.Database) error {
				engine, err := db.NewEngine()
				if err != nil {
					return err
				}
				result, err := engine.Ask(c.Context, question)
				if err != nil && (result == nil || !errors.Is(err, qa.ErrNoRelevantClauses)) {
					return err
				}
				if c.Bool("json") {
					return writeJSON(c.App.Writer, result)
				}
				printAnswer(c.App.Writer, result)
				return nil
			})
		},
	}
}

func printAnswer(w io.Writer, r *qa.Result) {
	fmt.Fprintln(w, r.Answer)
	printList(w, "Coverage", r.Coverage)
	printList(w, "Exclusions", r.Exclusions)
	printList(w, "Conditions", r.Conditions)
	if len(r.Citations) > 0 {
		fmt.Fprintln(w, "\nCitations:")
		for _, cite := range r.Citations {
			fmt.Fprintf(w, "  [%s] %s\n", cite.ClauseID, cite.Title)
		}
	}
	fmt.Fprintf(w, "\nintent=%s confidence=%.2f retrieved=%d", r.Intent, r.Confidence, r.RetrievedChunksCount)
	if r.Degraded {
		fmt.Fprint(w, " degraded")
	}
	fmt.Fprintln(w)
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Show ranked retrieval results without answer synthesis",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{Name: "top-k", Usage: "Number of results; overrides retrieval.top_k"},
			&cli.Float64Flag{Name: "alpha", Usage: "Graph/vector blend; overrides retrieval.alpha"},
			&cli.BoolFlag{Name: "select-article", Usage: "Keep only the clause the model picks; overrides retrieval.select_article"},
		},
		Action: func(c *cli.Context) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("%w: search requires a question", errUsage)
			}

			return withDatabase(c, func(db *policygraph.Database) error {
				searcher, err := db.NewSearcher()
				if err != nil {
					return err
				}
				params := searcher.Config()
				if c.IsSet("top-k") {
					params.TopK = c.Int("top-k")
				}
				if c.IsSet("alpha") {
					params.Alpha = c.Float64("alpha")
				}
				if c.IsSet("select-article") {
					params.SelectArticle = c.Bool("select-article")
				}

				analysis, err := db.Provider().QueryAnalyzer().Analyze(c.Context, question)
				if err != nil {
					return fmt.Errorf("query understanding failed: %w", err)
				}
				resp, err := searcher.Search(c.Context, search.Query{
					Question:        question,
					Intent:          analysis.Intent,
					Keywords:        analysis.Keywords,
					RiskTypes:       analysis.RiskTypes,
					SpecialClause:   analysis.SpecialClause,
					ClauseMentioned: analysis.ClauseMentioned,
					Params:          &params,
				})
				if err != nil {
					return err
				}

				w := c.App.Writer
				fmt.Fprintf(w, "Found %d results (intent %s)\n", len(resp.Results), analysis.Intent)
				if resp.SelectedClause != "" {
					fmt.Fprintf(w, "selected: %s\n", resp.SelectedClause)
				}
				for i, r := range resp.Results {
					fmt.Fprintf(w, "%d: [%s] %s (%s)[%0.3f]\n", i, r.ClauseID(), r.ID(), r.Provenance, r.HybridScore)
				}
				for _, ref := range resp.References {
					fmt.Fprintf(w, "ref: [%s] %s\n", ref.ID, ref.Title)
				}
				return nil
			})
		},
	}
}

func clauseCommand() *cli.Command {
	return &cli.Command{
		Name:      "clause",
		Usage:     "Show a clause with its sub-chunks and references",
		ArgsUsage: "<clause id>",
		Flags:     []cli.Flag{dbFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%w: clause requires exactly one clause id", errUsage)
			}

			return withDatabase(c, func(db *policygraph.Database) error {
				searcher, err := db.NewSearcher()
				if err != nil {
					return err
				}
				cc, err := searcher.Clause(c.Context, c.Args().First())
				if err != nil {
					return err
				}

				w := c.App.Writer
				fmt.Fprintf(w, "%s %s (%s)\n", cc.Clause.ID, cc.Clause.Title, cc.Clause.Type)
				if cc.Special != nil {
					fmt.Fprintf(w, "Special clause: %s\n", cc.Special.Name)
				}
				fmt.Fprintf(w, "\n%s\n", cc.Clause.Text)
				for _, chunk := range cc.SubChunks {
					fmt.Fprintf(w, "  %d. [%s] %s\n", chunk.Ordinal, chunk.SemanticType, chunk.Text)
				}
				for _, ref := range cc.References {
					fmt.Fprintf(w, "  -> %s %s\n", ref.To, ref.Label)
				}
				return nil
			})
		},
	}
}

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:  "reembed",
		Usage: "Recompute sub-chunk embeddings with the configured model",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.BoolFlag{
				Name:  "stale",
				Usage: "Only sub-chunks without an embedding or whose text changed",
			},
		},
		Action: func(c *cli.Context) error {
			return withDatabase(c, func(db *policygraph.Database) error {
				cfg := loadedConfig(c)
				fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
				fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", cfg.AI.EmbeddingModel)

				if _, err := db.NewReembedder(c.App.ErrWriter, c.Bool("stale")).Run(c.Context); err != nil {
					return fmt.Errorf("reembedding failed: %w", err)
				}
				return nil
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print store counts",
		Flags: []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			return withDatabase(c, func(db *policygraph.Database) error {
				stats, err := db.Stats(c.Context)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return writeJSON(c.App.Writer, stats)
				}
				w := c.App.Writer
				fmt.Fprintf(w, "Clauses:         %d\n", stats.Clauses)
				fmt.Fprintf(w, "Special clauses: %d\n", stats.SpecialClauses)
				fmt.Fprintf(w, "Sub-chunks:      %d (%d embedded)\n", stats.SubChunks, stats.Embedded)
				fmt.Fprintf(w, "References:      %d\n", stats.References)
				return nil
			})
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "addr", Usage: "Listen address; overrides server.addr"},
		},
		Action: func(c *cli.Context) error {
			cfg := loadedConfig(c)
			if c.IsSet("addr") {
				cfg.Server.Addr = c.String("addr")
			}

			return withDatabase(c, func(db *policygraph.Database) error {
				server, err := db.NewServer()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return server.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
