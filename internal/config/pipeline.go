package config

import (
	"fmt"
	"os"

	"github.com/ksyounes98/agri-risk-etl/internal/clean"
	"github.com/ksyounes98/agri-risk-etl/internal/ingest"
	"github.com/ksyounes98/agri-risk-etl/internal/score"
	"gopkg.in/yaml.v3"
)

// PipelineConfig is the data-shaped half of the configuration: which sources
// to merge, how to clean them, and how to score the result. It is loaded from
// a YAML file so operators can change weights, ranges, and policies without a
// rebuild.
type PipelineConfig struct {
	Sources      []ingest.SourceSpec      `yaml:"sources"`
	YieldHistory *ingest.YieldHistorySpec `yaml:"yield_history"`
	Cleaning     clean.Config             `yaml:"cleaning"`
	Scoring      score.Config             `yaml:"scoring"`
}

// LoadPipeline reads and validates a pipeline configuration file.
func LoadPipeline(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section; the first problem wins.
func (c *PipelineConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("pipeline config: no sources defined")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
		if seen[src.Name] {
			return fmt.Errorf("pipeline config: duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}
	if c.YieldHistory != nil {
		if err := c.YieldHistory.Validate(); err != nil {
			return fmt.Errorf("pipeline config: %w", err)
		}
	}
	if err := c.Cleaning.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	return nil
}
