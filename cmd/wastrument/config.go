package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the shape of an optional wastrument.yaml project file,
// merged with CLI flags (flags win), the same "declarative file plus
// flag overrides" idiom internal/ext/config.go uses for funxy.yaml.
type fileConfig struct {
	InputProgramPath   string   `yaml:"input_program_path"`
	AnalysisPath       string   `yaml:"analysis_path"`
	AnalysisSourceKind string   `yaml:"analysis_source_kind"`
	OutputPath         string   `yaml:"output_path"`
	Hooks              []string `yaml:"hooks"`
	Targets            []uint32 `yaml:"targets"`
	Primary            string   `yaml:"primary"`
	CacheDB            string   `yaml:"cache_db"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &fileConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
