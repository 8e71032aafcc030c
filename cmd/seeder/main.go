package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/poiesic/policygraph"
	"github.com/poiesic/policygraph/config"
	"github.com/poiesic/policygraph/ingestion"
	"github.com/urfave/cli/v2"
)

// sampleQuestions exercise every retrieval path over the sample policy.
var sampleQuestions = []string{
	"화재로 인한 손해를 보상받을 수 있나요?",
	"보상하지 않는 손해는 무엇인가요?",
	"도난위험 특약에서 보상하는 손해는?",
	"자기부담금은 얼마인가요?",
	"제11조의 내용은 무엇인가요?",
}

var openDatabase = func(cfg *config.Config) (*policygraph.Database, error) {
	return policygraph.NewDatabase(cfg)
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "seeder",
		Usage:     "Seed a store with a sample home-fire policy",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"POLICYGRAPH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "src",
				Usage: "Policy document to seed instead of the built-in sample",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the document as JSON to this file (- for stdout) instead of ingesting it",
			},
			&cli.BoolFlag{
				Name:  "ask",
				Usage: "Answer the sample questions after seeding",
			},
		},
		Action: seed,
	}
}

func seed(c *cli.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelInfo})))

	doc := samplePolicy()
	if src := c.String("src"); src != "" {
		var err error
		if doc, err = ingestion.LoadDocumentFile(src); err != nil {
			return err
		}
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		return writeDocument(c.App.Writer, out, doc)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(c.Context, doc)
	if err != nil {
		return err
	}
	slog.Info("seeded policy",
		"version", result.PolicyVersion,
		"clauses", result.Clauses,
		"sub_chunks", result.SubChunks,
		"embedded", result.Embedded,
		"references", result.References)

	if !c.Bool("ask") {
		return nil
	}
	engine, err := db.NewEngine()
	if err != nil {
		return err
	}
	results, err := engine.AskBatch(c.Context, sampleQuestions)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(c.App.Writer, "Q: %s\nA: %s\n   (intent %s, %d chunks, confidence %.2f)\n\n",
			r.Question, r.Answer, r.Intent, r.RetrievedChunksCount, r.Confidence)
	}
	return nil
}

func writeDocument(stdout io.Writer, path string, doc *ingestion.Document) (err error) {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
