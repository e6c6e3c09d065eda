package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NLP struct {
		// Mode selects the text normalization backend: "http" for the
		// NLP sidecar, "builtin" for the embedded normalizer.
		Mode string `yaml:"mode"`
		URL  string `yaml:"url"`
	} `yaml:"nlp"`
	ML struct {
		ModelsDir               string   `yaml:"models_dir"`
		MinSamples              int      `yaml:"min_samples"`
		LSTMTimesteps           int      `yaml:"lstm_timesteps"`
		KeywordRefreshSeconds   int64    `yaml:"keyword_refresh_seconds"`
		CategoryCacheSeconds    int64    `yaml:"category_cache_seconds"`
		AvgDurationCacheSeconds int64    `yaml:"avg_duration_cache_seconds"`
		TabularStatuses         []string `yaml:"tabular_statuses"`
		PublishLockWaitSeconds  int64    `yaml:"publish_lock_wait_seconds"`
		KeepModelVersions       int      `yaml:"keep_model_versions"`
	} `yaml:"ml"`
	Recommend struct {
		TopN    int `yaml:"top_n"`
		Weights struct {
			Time  float64 `yaml:"time"`
			Load  float64 `yaml:"load"`
			Skill float64 `yaml:"skill"`
		} `yaml:"weights"`
	} `yaml:"recommend"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.NLP.Mode == "" {
		c.NLP.Mode = "builtin"
	}
	if c.ML.ModelsDir == "" {
		c.ML.ModelsDir = "ml_models"
	}
	if c.ML.MinSamples == 0 {
		c.ML.MinSamples = 10
	}
	if c.ML.LSTMTimesteps == 0 {
		c.ML.LSTMTimesteps = 5
	}
	if c.ML.KeywordRefreshSeconds == 0 {
		c.ML.KeywordRefreshSeconds = 3600
	}
	if c.ML.CategoryCacheSeconds == 0 {
		c.ML.CategoryCacheSeconds = 300
	}
	if c.ML.AvgDurationCacheSeconds == 0 {
		c.ML.AvgDurationCacheSeconds = 3600
	}
	if len(c.ML.TabularStatuses) == 0 {
		c.ML.TabularStatuses = []string{"planned", "required check"}
	}
	if c.ML.PublishLockWaitSeconds == 0 {
		c.ML.PublishLockWaitSeconds = 30
	}
	if c.ML.KeepModelVersions == 0 {
		c.ML.KeepModelVersions = 3
	}
	if c.Recommend.TopN == 0 {
		c.Recommend.TopN = 3
	}
	if c.Recommend.Weights.Time == 0 && c.Recommend.Weights.Load == 0 && c.Recommend.Weights.Skill == 0 {
		c.Recommend.Weights.Time = 0.5
		c.Recommend.Weights.Load = 0.3
		c.Recommend.Weights.Skill = 0.2
	}
}
