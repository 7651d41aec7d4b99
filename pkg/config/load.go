package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type ValidationError struct {
	Problems []string
}

func (err *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(err.Problems, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load overrides the defaults with the keys present in a yaml or json file.
func Load(path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(bytes, &raw)
	default:
		err = yaml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot parse %v: %w", path, err)
	}
	return FromMap(raw)
}

func FromMap(raw map[string]any) (Config, error) {
	config := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &config,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("cannot decode configuration: %w", err)
	}
	return config, Validate(config)
}

func Validate(config Config) error {
	problems := make([]string, 0)
	if err := validate.Struct(config); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fieldError := range validationErrors {
			problems = append(problems, fmt.Sprintf("%v fails %v", fieldError.Namespace(), fieldError.Tag()))
		}
	}
	if config.Features.PatternCuts && config.Features.HeuristicCompactnessAtSurface {
		problems = append(problems, "pattern cuts and heuristic compactness at surface are mutually exclusive")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
