package enrich

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid processor configuration")
	ErrTransport         = errors.New("categorization transport failure")
	ErrUnusableResponse  = errors.New("step produced no usable category")
	ErrFieldMissing      = errors.New("input field missing or not a string")
	ErrTargetFieldExists = errors.New("target field already populated")
)

// ConfigurationError is returned while building a processor from its
// untyped configuration. It always matches ErrInvalidConfig.
type ConfigurationError struct {
	ProcessorType string
	Tag           string
	Property      string
	Reason        string
}

func (e *ConfigurationError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("[%s] processor %s [%s]: %s", e.ProcessorType, e.Tag, e.Property, e.Reason)
	}
	return fmt.Sprintf("[%s] processor [%s]: %s", e.ProcessorType, e.Property, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// ProcessingFailure aborts processing of one document. Kind classifies it
// (ErrTransport, ErrUnusableResponse, ErrFieldMissing, ...), Cause chains
// the upstream error if there was one.
type ProcessingFailure struct {
	Processor string
	Kind      error
	Message   string
	Cause     error
}

func (e *ProcessingFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Processor, e.Message)
}

func (e *ProcessingFailure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
