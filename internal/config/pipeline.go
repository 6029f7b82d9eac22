package config

import (
	"fmt"

	"github.com/spf13/viper"

	"catenrich/internal/enrich"
)

// LoadPipeline reads processor definitions from a YAML file shaped like
//
//	processors:
//	  - ros_categories:
//	      field: text
//	      target_field: category
//
// Processor settings are kept untyped; each processor's factory validates
// its own.
func LoadPipeline(path string) ([]enrich.Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	return parseProcessors(v.Get("processors"))
}

func parseProcessors(raw any) ([]enrich.Definition, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("processors: expected a list, got %T", raw)
	}

	defs := make([]enrich.Definition, 0, len(list))
	for i, entry := range list {
		m, ok := toStringMap(entry)
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("processors[%d]: expected a single-key map of processor type to settings", i)
		}
		for typ, settings := range m {
			cfg := map[string]any{}
			if settings != nil {
				if cfg, ok = toStringMap(settings); !ok {
					return nil, fmt.Errorf("processors[%d].%s: settings must be a map, got %T", i, typ, settings)
				}
			}
			defs = append(defs, enrich.Definition{Type: typ, Config: cfg})
		}
	}
	return defs, nil
}

func toStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
