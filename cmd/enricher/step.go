package main

import (
	"catenrich/internal/config"
	"catenrich/internal/enrich"
	"catenrich/internal/models"
	"catenrich/pkg/categories"
)

// newCategoriesClient builds the one client shared by every processor.
func newCategoriesClient(cfg config.CategoriesConfig) (*categories.Client, error) {
	opts := []categories.Option{categories.WithTimeout(cfg.Timeout)}
	if cfg.APIKey != "" {
		opts = append(opts, categories.WithAPIKey(cfg.APIKey))
	}
	return categories.NewClient(cfg.URL, opts...)
}

func newRegistry(client enrich.Categorizer) enrich.Registry {
	return enrich.Registry{
		enrich.CategoriesType: enrich.NewCategoriesFactory(client),
	}
}

// buildPipeline turns processor definitions into a document pipeline. It
// fails before any document is read if a definition is invalid.
func buildPipeline(client enrich.Categorizer, defs []enrich.Definition) (*enrich.Pipeline[models.Document], error) {
	procs, err := newRegistry(client).Build(defs)
	if err != nil {
		return nil, err
	}
	return enrich.FromProcessors(procs), nil
}
