package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"catenrich/internal/models"
)

// Processor enriches a document from the text of a single input field.
// Implementations hold no per-document state and may be called
// concurrently.
type Processor interface {
	Type() string
	Tag() string
	InputField() string
	TargetField() string
	Process(ctx context.Context, text string, doc *models.Document) error
}

// Factory builds a Processor from its untyped configuration. Factories must
// consume every key they understand from config; leftovers are rejected by
// the Registry.
type Factory func(tag string, config map[string]any) (Processor, error)

// Definition is one entry of a pipeline definition.
type Definition struct {
	Type   string
	Tag    string
	Config map[string]any
}

// Registry resolves processor type names to factories.
type Registry map[string]Factory

// Build constructs every processor of defs in order. It stops at the first
// configuration error so that nothing is processed with a half-built
// pipeline.
func (r Registry) Build(defs []Definition) ([]Processor, error) {
	procs := make([]Processor, 0, len(defs))
	for _, def := range defs {
		p, err := r.Create(def)
		if err != nil {
			return nil, err
		}
		procs = append(procs, p)
	}
	return procs, nil
}

// Create builds one processor. config is copied so the caller's map is left
// intact. A tag may come from the definition or the "tag" key; giving both
// with different values is an error.
func (r Registry) Create(def Definition) (Processor, error) {
	factory, ok := r[def.Type]
	if !ok {
		return nil, &ConfigurationError{ProcessorType: def.Type, Tag: def.Tag, Property: "type", Reason: "no processor registered for type"}
	}

	config := make(map[string]any, len(def.Config))
	for k, v := range def.Config {
		config[k] = v
	}
	tag := def.Tag
	if raw, ok := config["tag"]; ok {
		delete(config, "tag")
		s, isString := raw.(string)
		if !isString {
			return nil, &ConfigurationError{ProcessorType: def.Type, Tag: def.Tag, Property: "tag", Reason: "property isn't a string"}
		}
		if tag != "" && s != tag {
			return nil, &ConfigurationError{
				ProcessorType: def.Type, Tag: def.Tag, Property: "tag",
				Reason: fmt.Sprintf("value [%s] conflicts with the definition tag", s),
			}
		}
		tag = s
	}

	p, err := factory(tag, config)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		keys := make([]string, 0, len(config))
		for k := range config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &ConfigurationError{
			ProcessorType: def.Type,
			Tag:           tag,
			Property:      strings.Join(keys, ","),
			Reason:        "processor does not support one or more provided configuration parameters",
		}
	}
	return p, nil
}

// readStringProperty consumes a required string property from config.
func readStringProperty(processorType, tag string, config map[string]any, name string) (string, error) {
	raw, ok := config[name]
	if !ok || raw == nil {
		return "", &ConfigurationError{ProcessorType: processorType, Tag: tag, Property: name, Reason: "required property is missing"}
	}
	delete(config, name)
	s, ok := raw.(string)
	if !ok {
		return "", &ConfigurationError{
			ProcessorType: processorType, Tag: tag, Property: name,
			Reason: fmt.Sprintf("property isn't a string, but of type [%T]", raw),
		}
	}
	return s, nil
}

// readNonEmptyStringProperty is readStringProperty for properties that name
// a document field.
func readNonEmptyStringProperty(processorType, tag string, config map[string]any, name string) (string, error) {
	s, err := readStringProperty(processorType, tag, config, name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &ConfigurationError{ProcessorType: processorType, Tag: tag, Property: name, Reason: "property must not be empty"}
	}
	return s, nil
}

// readOptionalStringProperty consumes an optional string property, returning
// def when it is absent.
func readOptionalStringProperty(processorType, tag string, config map[string]any, name, def string) (string, error) {
	if raw, ok := config[name]; !ok || raw == nil {
		delete(config, name)
		return def, nil
	}
	return readStringProperty(processorType, tag, config, name)
}

// FieldStep adapts p to a pipeline Step: it reads p's input field, refuses
// to overwrite an existing target field, then calls Process.
func FieldStep(p Processor) Step[models.Document] {
	return func(ctx context.Context, doc *models.Document) error {
		raw, ok := doc.GetFieldValue(p.InputField())
		text, isString := raw.(string)
		if !ok || !isString {
			return &ProcessingFailure{
				Processor: processorName(p),
				Kind:      ErrFieldMissing,
				Message:   fmt.Sprintf("field [%s] not present as a string in document", p.InputField()),
			}
		}
		if doc.HasField(p.TargetField()) {
			return &ProcessingFailure{
				Processor: processorName(p),
				Kind:      ErrTargetFieldExists,
				Message:   fmt.Sprintf("document already contains data in target field [%s]", p.TargetField()),
			}
		}
		return p.Process(ctx, text, doc)
	}
}

// FailedProcessor returns the processor name carried by err, if any.
func FailedProcessor(err error) string {
	var pf *ProcessingFailure
	if errors.As(err, &pf) {
		return pf.Processor
	}
	return ""
}

func processorName(p Processor) string {
	if p.Tag() != "" {
		return p.Type() + ":" + p.Tag()
	}
	return p.Type()
}
