// Package config loads the service's tunables (§6) with defaults set in
// code, overridable by a YAML file and then by CLI flags, in that layering
// order.
package config

import (
	"errors"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds every tunable named in §6, with the defaults given there.
type Config struct {
	StatementCacheBufferSize int64         `koanf:"statement_cache_buffer_size"`
	AccessWeightFactor       float64       `koanf:"access_weight_factor"`
	CachePersistenceInterval time.Duration `koanf:"cache_persistence_interval"`
	CacheDir                 string        `koanf:"cache_dir"`

	SuggestionPrefetch      bool          `koanf:"suggestion_prefetch"`
	SuggestionPrefetchDelay time.Duration `koanf:"suggestion_prefetch_delay"`
	SuggestionMemoTTL       time.Duration `koanf:"suggestion_memo_ttl"`
	SuggestionMemoCacheSize int           `koanf:"suggestion_memo_cache_size"`

	ValidationDebounceDelay time.Duration `koanf:"validation_debounce_delay"`

	SchemaStalenessThreshold time.Duration `koanf:"schema_staleness_threshold"`
	ServerCallTimeout        time.Duration `koanf:"server_call_timeout"`

	ExpanderCacheSize       int           `koanf:"expander_cache_size"`
	ExpanderCacheTTL        time.Duration `koanf:"expander_cache_ttl"`
	ExpanderBackgroundDelay time.Duration `koanf:"expander_background_delay"`
	ExpanderMaxConcurrent   int64         `koanf:"expander_max_concurrent"`
	ExpanderStrategy        string        `koanf:"expander_strategy"`
}

// Default returns the §6 configuration defaults.
func Default() Config {
	return Config{
		StatementCacheBufferSize: 5 * 1024 * 1024,
		AccessWeightFactor:       0.7,
		CachePersistenceInterval: 30 * time.Second,
		CacheDir:                 ".cache",

		SuggestionPrefetch:      true,
		SuggestionPrefetchDelay: 50 * time.Millisecond,
		SuggestionMemoTTL:       60 * time.Second,
		SuggestionMemoCacheSize: 100,

		ValidationDebounceDelay: 1000 * time.Millisecond,

		SchemaStalenessThreshold: 5 * time.Minute,
		ServerCallTimeout:        30 * time.Second,

		ExpanderCacheSize:       50,
		ExpanderCacheTTL:        5 * time.Minute,
		ExpanderBackgroundDelay: 500 * time.Millisecond,
		ExpanderMaxConcurrent:   3,
		ExpanderStrategy:        "moderate",
	}
}

// Load builds a Config starting from the defaults, then layering a YAML
// file (when path is non-empty and present) and then flags (when flags is
// non-nil) on top: code defaults, then file, then flags win last.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if err := k.Load(structProvider(cfg), nil); err != nil {
		return Config{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, err
		}
	}

	var out Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &out, unmarshalConf); err != nil {
		return Config{}, err
	}
	return out, nil
}

// structProvider adapts an already-built Config into a koanf.Provider so
// the code defaults participate in the same layered Load pipeline as the
// file and flag providers instead of being special-cased.
type inlineProvider struct {
	values map[string]any
}

func structProvider(cfg Config) koanf.Provider {
	return inlineProvider{values: map[string]any{
		"statement_cache_buffer_size": cfg.StatementCacheBufferSize,
		"access_weight_factor":        cfg.AccessWeightFactor,
		"cache_persistence_interval":  cfg.CachePersistenceInterval,
		"cache_dir":                   cfg.CacheDir,
		"suggestion_prefetch":         cfg.SuggestionPrefetch,
		"suggestion_prefetch_delay":   cfg.SuggestionPrefetchDelay,
		"suggestion_memo_ttl":         cfg.SuggestionMemoTTL,
		"suggestion_memo_cache_size":  cfg.SuggestionMemoCacheSize,
		"validation_debounce_delay":   cfg.ValidationDebounceDelay,
		"schema_staleness_threshold":  cfg.SchemaStalenessThreshold,
		"server_call_timeout":         cfg.ServerCallTimeout,
		"expander_cache_size":         cfg.ExpanderCacheSize,
		"expander_cache_ttl":          cfg.ExpanderCacheTTL,
		"expander_background_delay":   cfg.ExpanderBackgroundDelay,
		"expander_max_concurrent":     cfg.ExpanderMaxConcurrent,
		"expander_strategy":           cfg.ExpanderStrategy,
	}}
}

func (p inlineProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: inlineProvider does not support ReadBytes")
}

func (p inlineProvider) Read() (map[string]any, error) {
	return p.values, nil
}
