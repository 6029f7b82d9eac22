package enrich

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"catenrich/internal/models"
	"catenrich/pkg/categories"
)

const (
	CategoriesType = "ros_categories"

	// DefaultCategoryTargetField is where the label lands when the pipeline
	// definition does not name a target_field.
	DefaultCategoryTargetField = "ros_category"
)

// Categorizer is the remote categorization service. *categories.Client
// satisfies it.
type Categorizer interface {
	Categorize(ctx context.Context, req categories.Request) (*categories.Response, error)
}

// CategoriesProcessor writes the best category label for the input text
// into the target field.
type CategoriesProcessor struct {
	client      Categorizer
	tag         string
	inputField  string
	targetField string
}

func NewCategoriesProcessor(client Categorizer, tag, inputField, targetField string) *CategoriesProcessor {
	return &CategoriesProcessor{
		client:      client,
		tag:         tag,
		inputField:  inputField,
		targetField: targetField,
	}
}

func (p *CategoriesProcessor) Type() string        { return CategoriesType }
func (p *CategoriesProcessor) Tag() string         { return p.tag }
func (p *CategoriesProcessor) InputField() string  { return p.inputField }
func (p *CategoriesProcessor) TargetField() string { return p.targetField }

// Process makes exactly one call to the service. On any failure the
// document is left untouched and a *ProcessingFailure is returned.
func (p *CategoriesProcessor) Process(ctx context.Context, text string, doc *models.Document) error {
	req := categories.Request{Content: text}

	resp, err := p.client.Categorize(ctx, req)
	if err != nil {
		msg := upstreamMessage(err)
		log.WithFields(log.Fields{
			"processor": CategoriesType,
			"tag":       p.tag,
		}).Error(msg)
		return &ProcessingFailure{Processor: processorName(p), Kind: ErrTransport, Message: msg, Cause: err}
	}

	top := resp.Top()
	if top == nil || top.Label == "" {
		return &ProcessingFailure{
			Processor: processorName(p),
			Kind:      ErrUnusableResponse,
			Message:   ErrUnusableResponse.Error(),
		}
	}

	if err := doc.SetFieldValue(p.targetField, top.Label); err != nil {
		return &ProcessingFailure{Processor: processorName(p), Message: err.Error(), Cause: err}
	}
	return nil
}

// NewCategoriesFactory returns the Factory for ros_categories processors.
// Every processor it builds shares client.
func NewCategoriesFactory(client Categorizer) Factory {
	return func(tag string, config map[string]any) (Processor, error) {
		inputField, err := readNonEmptyStringProperty(CategoriesType, tag, config, "field")
		if err != nil {
			return nil, err
		}
		targetField, err := readOptionalStringProperty(CategoriesType, tag, config, "target_field", DefaultCategoryTargetField)
		if err != nil {
			return nil, err
		}
		if targetField == "" {
			return nil, &ConfigurationError{ProcessorType: CategoriesType, Tag: tag, Property: "target_field", Reason: "property must not be empty"}
		}
		return NewCategoriesProcessor(client, tag, inputField, targetField), nil
	}
}

func upstreamMessage(err error) string {
	var apiErr *categories.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
