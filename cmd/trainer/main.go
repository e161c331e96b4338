// Command trainer fits a classification model from labelled samples and
// writes a versioned artifact the worker loads at startup.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/finvault/docclassify/internal/infrastructure/classifier"
	"github.com/finvault/docclassify/internal/infrastructure/contentstore/mongo"
	"github.com/finvault/docclassify/internal/infrastructure/textproc"
	"github.com/finvault/docclassify/internal/observability/logging"
)

func main() {
	app := &cli.App{
		Name:  "trainer",
		Usage: "train a document classification model and save its artifact",
		Commands: []*cli.Command{
			trainCommand(),
			inspectCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "fit a model from a CSV file or from the content store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Value: classifier.ModelNaiveBayes,
				Usage: "model family: naive_bayes, logistic_regression or nearest_centroid",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "CSV file with text,category columns (header required)",
			},
			&cli.BoolFlag{
				Name:  "from-store",
				Usage: "load labelled samples from the content store instead of a CSV",
			},
			&cli.BoolFlag{
				Name:  "tune",
				Usage: "run cross-validated hyperparameter search before the final fit",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "./data/models/current",
				Usage: "artifact path prefix (.bin and .meta.json are appended)",
			},
			&cli.StringFlag{
				Name:  "mongo-uri",
				Value: "mongodb://localhost:27017",
				Usage: "content store URI, used with --from-store",
			},
			&cli.StringFlag{
				Name:  "mongo-database",
				Value: "docclassify",
			},
			&cli.StringFlag{
				Name:  "mongo-collection",
				Value: "document_contents",
			},
		},
		Action: runTrain,
	}
}

func runTrain(c *cli.Context) error {
	logger := logging.NewJSONLogger("docclassify-trainer", "info")
	ctx := c.Context

	var (
		texts  []string
		labels []string
		err    error
	)
	switch {
	case c.Bool("from-store"):
		texts, labels, err = loadFromStore(ctx, c.String("mongo-uri"), c.String("mongo-database"), c.String("mongo-collection"))
	case c.String("csv") != "":
		texts, labels, err = loadFromCSV(c.String("csv"))
	default:
		return cli.Exit("either --csv or --from-store is required", 2)
	}
	if err != nil {
		return err
	}
	logger.Info("training samples loaded", "count", len(texts))

	normalizer, err := textproc.New()
	if err != nil {
		return fmt.Errorf("init normalizer: %w", err)
	}
	for i, text := range texts {
		texts[i] = normalizer.Normalize(text)
	}

	engine, err := classifier.New(c.String("model"))
	if err != nil {
		return err
	}

	start := time.Now()
	meta, err := engine.Train(texts, labels, c.Bool("tune"))
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}
	logger.Info("model trained",
		"model_type", meta.ModelType,
		"model_version", meta.Version,
		"samples", meta.NumSamples,
		"classes", meta.NumClasses,
		"accuracy", meta.Evaluation.Accuracy,
		"precision", meta.Evaluation.Precision,
		"recall", meta.Evaluation.Recall,
		"f1", meta.Evaluation.F1,
		"duration", time.Since(start).String(),
	)

	output := c.String("output")
	if err := engine.Save(output); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	logger.Info("artifact saved", "path", output)
	return nil
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "load an artifact and print its metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "path",
				Required: true,
				Usage:    "artifact path prefix",
			},
		},
		Action: func(c *cli.Context) error {
			engine, err := classifier.Load(c.String("path"))
			if err != nil {
				return err
			}
			meta := engine.Metadata()
			fmt.Printf("model_type:  %s\n", meta.ModelType)
			fmt.Printf("version:     %s\n", meta.Version)
			fmt.Printf("trained_at:  %s\n", meta.TrainedAt.Format(time.RFC3339))
			fmt.Printf("samples:     %d\n", meta.NumSamples)
			fmt.Printf("classes:     %d\n", meta.NumClasses)
			fmt.Printf("accuracy:    %.4f\n", meta.Evaluation.Accuracy)
			fmt.Printf("precision:   %.4f\n", meta.Evaluation.Precision)
			fmt.Printf("recall:      %.4f\n", meta.Evaluation.Recall)
			fmt.Printf("f1:          %.4f\n", meta.Evaluation.F1)
			return nil
		},
	}
}

// loadFromCSV reads text,category rows. Column order is taken from the
// header so exports with extra columns still work.
func loadFromCSV(path string) ([]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	textCol, labelCol := -1, -1
	for i, name := range header {
		switch name {
		case "text", "content":
			textCol = i
		case "category", "label":
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, nil, fmt.Errorf("csv header must contain text and category columns, got %v", header)
	}

	var texts, labels []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row: %w", err)
		}
		if textCol >= len(record) || labelCol >= len(record) {
			continue
		}
		if record[textCol] == "" || record[labelCol] == "" {
			continue
		}
		texts = append(texts, record[textCol])
		labels = append(labels, record[labelCol])
	}
	return texts, labels, nil
}

func loadFromStore(ctx context.Context, uri, database, collection string) ([]string, []string, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, closeStore, err := mongo.New(connectCtx, uri, database, collection)
	if err != nil {
		return nil, nil, fmt.Errorf("connect content store: %w", err)
	}
	defer closeStore()

	return store.TrainingSamples(ctx)
}
