package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/maastricht-university/datecoach-analytics/chemistry"
	"github.com/maastricht-university/datecoach-analytics/emotion"
	"github.com/maastricht-university/datecoach-analytics/report"
	"github.com/maastricht-university/datecoach-analytics/segment"
	"github.com/maastricht-university/datecoach-analytics/telemetry"
)

type Service struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Retries int    `yaml:"retries" mapstructure:"retries"`
}
type Services struct {
	Visualization Service `yaml:"visualization" mapstructure:"visualization"`
}
type Pipeline struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Version   string `yaml:"version" mapstructure:"version"`
	LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
}
type Session struct {
	SnapshotInterval time.Duration `yaml:"snapshot_interval" mapstructure:"snapshot_interval"`
	QueueSize        int           `yaml:"queue_size" mapstructure:"queue_size"`
	User             string        `yaml:"user" mapstructure:"user"`
}
type Analysis struct {
	KeyMomentThreshold float64           `yaml:"key_moment_threshold" mapstructure:"key_moment_threshold"`
	JokeReaction       float64           `yaml:"joke_reaction_threshold" mapstructure:"joke_reaction_threshold"`
	Amusement          float64           `yaml:"amusement_threshold" mapstructure:"amusement_threshold"`
	Listening          float64           `yaml:"listening_threshold" mapstructure:"listening_threshold"`
	Range              float64           `yaml:"range_threshold" mapstructure:"range_threshold"`
	StoryMinLength     int               `yaml:"story_min_length" mapstructure:"story_min_length"`
	ResponseMinLength  int               `yaml:"response_min_length" mapstructure:"response_min_length"`
	Weights            chemistry.Weights `yaml:"weights" mapstructure:"weights"`
}
type Server struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}
type Paths struct {
	Outputs string `yaml:"outputs" mapstructure:"outputs"`
}
type Root struct {
	Pipeline  Pipeline         `yaml:"pipeline" mapstructure:"pipeline"`
	Session   Session          `yaml:"session" mapstructure:"session"`
	Analysis  Analysis         `yaml:"analysis" mapstructure:"analysis"`
	Keywords  segment.Keywords `yaml:"keywords" mapstructure:"keywords"`
	Insights  report.Bands     `yaml:"insights" mapstructure:"insights"`
	Services  Services         `yaml:"services" mapstructure:"services"`
	Server    Server           `yaml:"server" mapstructure:"server"`
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Paths     Paths            `yaml:"paths" mapstructure:"paths"`
}

func setDefaults(v *viper.Viper) {
	kw := segment.DefaultKeywords()
	th := segment.DefaultThresholds()
	rc := report.DefaultConfig()
	w := chemistry.DefaultWeights()

	v.SetDefault("pipeline.name", "datecoach-analytics")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")

	v.SetDefault("session.snapshot_interval", "5s")
	v.SetDefault("session.queue_size", 256)
	v.SetDefault("session.user", string(emotion.Participant1))

	v.SetDefault("analysis.key_moment_threshold", chemistry.DefaultThreshold)
	v.SetDefault("analysis.joke_reaction_threshold", rc.JokeReaction)
	v.SetDefault("analysis.amusement_threshold", th.Amusement)
	v.SetDefault("analysis.listening_threshold", th.Listening)
	v.SetDefault("analysis.range_threshold", th.Range)
	v.SetDefault("analysis.story_min_length", th.StoryMinLength)
	v.SetDefault("analysis.response_min_length", rc.ResponseMinLength)
	v.SetDefault("analysis.weights.positive", w.Positive)
	v.SetDefault("analysis.weights.negative", w.Negative)

	v.SetDefault("keywords.interrogatives", kw.Interrogatives)
	v.SetDefault("keywords.amusement_markers", kw.AmusementMarkers)
	v.SetDefault("keywords.narrative_markers", kw.NarrativeMarkers)

	v.SetDefault("insights.strong", rc.Bands.Strong)
	v.SetDefault("insights.weak", rc.Bands.Weak)

	v.SetDefault("services.visualization.url", "")
	v.SetDefault("services.visualization.retries", 3)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.export_interval", "30s")

	v.SetDefault("paths.outputs", "outputs")
}

// Loader keeps the viper instance so the file can be watched after the first read.
type Loader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cur *Root
}

// NewLoader reads path, or when empty searches config/<CONFIG_ENV>/config.yaml and
// src/shared/config.yaml. No file found means defaults; DATECOACH_* env vars override.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DATECOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join("config", env))
		v.AddConfigPath(filepath.Join("src", "shared"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	l := &Loader{v: v}
	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.cur = cfg
	return l, nil
}

// Defaults is the configuration used when no file is found.
func Defaults() *Root {
	v := viper.New()
	setDefaults(v)
	var c Root
	if err := v.Unmarshal(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

func Load(path string) (*Root, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Current(), nil
}

func (l *Loader) decode() (*Root, error) {
	var cfg Root
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) Current() *Root {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur
}

// File returns the config file in use, empty when running on defaults.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// Watch reloads on file changes. Invalid edits are reported to onError and the
// previous config stays current.
func (l *Loader) Watch(onChange func(*Root), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		l.mu.Lock()
		l.cur = cfg
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func (c *Root) Validate() error {
	if c.Session.SnapshotInterval <= 0 {
		return fmt.Errorf("session.snapshot_interval must be positive, got %s", c.Session.SnapshotInterval)
	}
	if _, ok := emotion.ParseParticipant(c.Session.User); !ok {
		return fmt.Errorf("session.user %q is not participant1 or participant2", c.Session.User)
	}
	if c.Insights.Weak > c.Insights.Strong {
		return fmt.Errorf("insights.weak (%v) above insights.strong (%v)", c.Insights.Weak, c.Insights.Strong)
	}
	if c.Analysis.KeyMomentThreshold <= 0 {
		return fmt.Errorf("analysis.key_moment_threshold must be positive")
	}
	return nil
}

func (c *Root) Thresholds() segment.Thresholds {
	return segment.Thresholds{
		Amusement:      c.Analysis.Amusement,
		Listening:      c.Analysis.Listening,
		Range:          c.Analysis.Range,
		StoryMinLength: c.Analysis.StoryMinLength,
	}
}

func (c *Root) Report() report.Config {
	user, _ := emotion.ParseParticipant(c.Session.User)
	return report.Config{
		User:              user,
		JokeReaction:      c.Analysis.JokeReaction,
		ResponseMinLength: c.Analysis.ResponseMinLength,
		Listening:         c.Analysis.Listening,
		Bands:             c.Insights,
	}
}
