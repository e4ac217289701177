package providers

import (
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"snapfeed/internal/structures"
	"strings"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "SFD_LOG_LEVEL")
	viper.BindEnv("hive.nodes", "SFD_HIVE_NODES")
	viper.BindEnv("hive.containerAccount", "SFD_CONTAINER_ACCOUNT")
	viper.BindEnv("feed.maxContainers", "SFD_MAX_CONTAINERS")
	viper.BindEnv("registry.muteURL", "SFD_MUTE_URL")
	viper.BindEnv("cache.enabled", "SFD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "SFD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SnapFeedDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
