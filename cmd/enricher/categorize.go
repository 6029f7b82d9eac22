package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"catenrich/internal/config"
	"catenrich/internal/enrich"
	"catenrich/internal/models"
)

func newCategorizeCmd(cfg *config.Config) *cobra.Command {
	var field, targetField string

	cmd := &cobra.Command{
		Use:   "categorize [file]",
		Short: "Categorize JSON documents read from a file or stdin and print them enriched",
		Long: `Reads one or more JSON documents (concatenated or one per line), runs a
single ros_categories processor over each and writes the enriched documents
to stdout, one per line. Documents that fail are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			client, err := newCategoriesClient(cfg.Categories)
			if err != nil {
				return err
			}
			processor := map[string]any{"field": field}
			if targetField != "" {
				processor["target_field"] = targetField
			}
			pipeline, err := buildPipeline(client, []enrich.Definition{{Type: enrich.CategoriesType, Config: processor}})
			if err != nil {
				return err
			}
			return categorizeStream(cmd.Context(), pipeline, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "document field holding the text to categorize")
	cmd.Flags().StringVar(&targetField, "target-field", "", "field to write the category label to (default \"ros_category\")")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// categorizeStream decodes documents from r, runs them through pipeline and
// encodes the successful ones to w.
func categorizeStream(ctx context.Context, pipeline *enrich.Pipeline[models.Document], r io.Reader, w, errW io.Writer) error {
	// Cancelling on return unblocks the decoder and the pipeline when the
	// output side fails early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docs := make(chan *models.Document)
	decodeErr := make(chan error, 1)
	go func() {
		defer close(docs)
		dec := json.NewDecoder(r)
		for {
			var doc models.Document
			if err := dec.Decode(&doc); err != nil {
				if !errors.Is(err, io.EOF) {
					decodeErr <- fmt.Errorf("decode document: %w", err)
				}
				return
			}
			select {
			case docs <- &doc:
			case <-ctx.Done():
				return
			}
		}
	}()

	enc := json.NewEncoder(w)
	total, failed := 0, 0
	for outcome := range pipeline.Process(ctx, docs) {
		total++
		if outcome.Err != nil {
			failed++
			fmt.Fprintf(errW, "document %d: %v\n", total, outcome.Err)
			continue
		}
		if err := enc.Encode(outcome.Item); err != nil {
			return fmt.Errorf("write document %d: %w", total, err)
		}
	}

	select {
	case err := <-decodeErr:
		return err
	default:
	}
	log.WithFields(log.Fields{"documents": total, "failed": failed}).Debug("Categorize finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, total)
	}
	return nil
}
