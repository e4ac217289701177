package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type HiveConfig struct {
	Nodes             []string      `yaml:"nodes" validate:"required|minLen:1"`
	Timeout           time.Duration `yaml:"timeout" validate:"required|min:1"`
	ContainerAccount  string        `yaml:"containerAccount" validate:"required"`
	FetchLimit        int           `yaml:"fetchLimit"`
	FollowingPageSize int           `yaml:"followingPageSize"`
	FollowingMax      int           `yaml:"followingMax"`
}

type FeedConfig struct {
	MaxContainers int           `yaml:"maxContainers" validate:"required|min:1"`
	RefreshWindow time.Duration `yaml:"refreshWindow" validate:"required|min:1"`
	SessionTTL    time.Duration `yaml:"sessionTTL" validate:"required|min:1"`
	SweepInterval time.Duration `yaml:"sweepInterval" validate:"required|min:1"`
}

type RegistryConfig struct {
	MuteURL      string        `yaml:"muteURL"`
	MuteTTL      time.Duration `yaml:"muteTTL"`
	FollowingTTL time.Duration `yaml:"followingTTL"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Hive      HiveConfig     `yaml:"hive"`
	Feed      FeedConfig     `yaml:"feed"`
	Registry  RegistryConfig `yaml:"registry"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
