// Package config loads the run configuration for skim from defaults, an optional config
// file, SKIM_ environment variables and command line flags (in increasing priority).
package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/store"
)

// Run holds everything that controls a skim run
type Run struct {
	KmerSize     uint     `mapstructure:"kmer_size"`
	SketchSize   uint     `mapstructure:"sketch_size"`
	MaxReads     int      `mapstructure:"max_reads"`
	Filter       bool     `mapstructure:"filter"`
	MinAbundance uint32   `mapstructure:"min_abundance"`
	Processors   int      `mapstructure:"processors"`
	Hasher       string   `mapstructure:"hasher"`
	Metrics      []string `mapstructure:"metrics"`
	Compression  string   `mapstructure:"compression"`
	Gzip         bool     `mapstructure:"gzip"`
	LogFile      string   `mapstructure:"log_file"`
	Verbose      bool     `mapstructure:"verbose"`
}

// flagKeys maps config keys to the command line flags that can set them
var flagKeys = map[string]string{
	"kmer_size":     "kmer-size",
	"sketch_size":   "nb-kmers",
	"max_reads":     "max-reads",
	"filter":        "filter",
	"min_abundance": "min-abundance",
	"processors":    "processors",
	"hasher":        "hasher",
	"metrics":       "metrics",
	"compression":   "compression",
	"gzip":          "gzip",
	"log_file":      "logFile",
	"verbose":       "verbose",
}

// DefaultRun returns a configuration with default values
func DefaultRun() *Run {
	return &Run{
		KmerSize:    DefaultKmerSize,
		SketchSize:  DefaultSketchSize,
		MaxReads:    DefaultMaxReads,
		Processors:  DefaultProcessors,
		Hasher:      DefaultHasher,
		Compression: DefaultCompression,
		LogFile:     DefaultLogFile,
	}
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("kmer_size", DefaultKmerSize)
	v.SetDefault("sketch_size", DefaultSketchSize)
	v.SetDefault("max_reads", DefaultMaxReads)
	v.SetDefault("filter", false)
	v.SetDefault("min_abundance", 0)
	v.SetDefault("processors", DefaultProcessors)
	v.SetDefault("hasher", DefaultHasher)
	v.SetDefault("metrics", []string{})
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("gzip", false)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("verbose", false)
}

// Load reads the configuration. An empty configFile searches for skim.yaml (or any other
// format viper knows) in the working directory and DefaultConfigDir, and carries on without
// one if nothing is found. Flags that have been set on the command line win over everything.
func Load(configFile string, flags *pflag.FlagSet) (*Run, error) {
	v := viper.New()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
	}

	// environment variables
	v.SetEnvPrefix("SKIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// command line
	if flags != nil {
		for key, name := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("no config file found, using defaults")
	} else {
		log.Debug("loaded config", "file", v.ConfigFileUsed())
	}

	run := &Run{}
	if err := v.Unmarshal(run); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return run, nil
}

// FilterPolicy resolves the filter settings. A min abundance above one wins, otherwise the
// filter switch selects the default threshold.
func (r *Run) FilterPolicy() minhash.FilterPolicy {
	switch {
	case r.MinAbundance > 1:
		return minhash.MinimumAbundance(r.MinAbundance)
	case r.Filter:
		return minhash.MinimumAbundance(minhash.DefaultMinAbundance)
	}
	return minhash.NoFilter()
}

// SketchConfig returns the sketch settings of the run
func (r *Run) SketchConfig() (minhash.Config, error) {
	hasher, err := minhash.ParseHasher(r.Hasher)
	if err != nil {
		return minhash.Config{}, err
	}
	config := minhash.Config{
		KmerSize: r.KmerSize,
		Capacity: r.SketchSize,
		Filter:   r.FilterPolicy(),
		Hasher:   hasher,
	}
	return config, config.Validate()
}

// Codec returns the store compression of the run
func (r *Run) Codec() (store.Compression, error) {
	return store.ParseCompression(r.Compression)
}

// MetricSet returns the metrics of the run, all of them if none were picked
func (r *Run) MetricSet() ([]distance.Metric, error) {
	var ids []string
	for _, id := range r.Metrics {
		for _, part := range strings.Split(id, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	return distance.ParseMetrics(ids)
}

// Validate checks the run settings
func (r *Run) Validate() error {
	if _, err := r.SketchConfig(); err != nil {
		return err
	}
	if r.MaxReads < 0 {
		return fmt.Errorf("max reads can't be negative: %d", r.MaxReads)
	}
	if r.Processors < 0 {
		return fmt.Errorf("processors can't be negative: %d", r.Processors)
	}
	if _, err := r.Codec(); err != nil {
		return err
	}
	if _, err := r.MetricSet(); err != nil {
		return err
	}
	return nil
}
