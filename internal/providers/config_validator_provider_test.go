package providers

import (
	"snapfeed/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Hive: structures.HiveConfig{
			Nodes:            []string{"https://api.hive.blog"},
			Timeout:          10 * time.Second,
			ContainerAccount: "peak.snaps",
		},
		Feed: structures.FeedConfig{
			MaxContainers: 5,
			RefreshWindow: 5 * time.Minute,
			SessionTTL:    30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_EmptyLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_NoHiveNodes(t *testing.T) {
	c := validConfig()
	c.Hive.Nodes = nil
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_EmptyContainerAccount(t *testing.T) {
	c := validConfig()
	c.Hive.ContainerAccount = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_ZeroMaxContainers(t *testing.T) {
	c := validConfig()
	c.Feed.MaxContainers = 0
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}
