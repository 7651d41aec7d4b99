package mip

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// ConfigPath points to the json file holding the paths of external solver executables.
var ConfigPath = "config.json"

func getExecutablePath(solver string) (string, error) {
	bytes, err := os.ReadFile(ConfigPath)
	if err != nil {
		return "", fmt.Errorf("cannot read %v: %w", ConfigPath, err)
	}
	var configJson map[string]any
	if err := json.Unmarshal(bytes, &configJson); err != nil {
		return "", fmt.Errorf("cannot parse %v: %w", ConfigPath, err)
	}

	var config map[string]string
	if err := mapstructure.Decode(configJson, &config); err != nil {
		return "", fmt.Errorf("cannot decode %v: %w", ConfigPath, err)
	}

	path, ok := config[solver]
	if !ok {
		return "", fmt.Errorf("solver \"%v\" is not present in config", solver)
	}
	return path, nil
}
