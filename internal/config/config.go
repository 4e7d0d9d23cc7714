// Package config resolves where the pipeline reads sources and writes
// artifacts. A Config is built once per process and passed down; nothing in
// the pipeline reads globals.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gamecfg/internal/data/loader"
)

const (
	keyRoot             = "root"
	keyDataDir          = "data_dir"
	keyBuildDir         = "build_dir"
	keySettingsSource   = "settings_source"
	keyItemsSource      = "items_source"
	keySaveDB           = "save_db"
	keyIndexDB          = "index_db"
	keyHistoryDir       = "history_dir"
	keyNotifyAddr       = "notify_addr"
	keyDisableIndex     = "disable_index"
	keyDisableHistory   = "disable_history"
	keyPublishEndpoint  = "publish.endpoint"
	keyPublishBucket    = "publish.bucket"
	keyPublishPrefix    = "publish.prefix"
	keyPublishAccessKey = "publish.access_key"
	keyPublishSecretKey = "publish.secret_key"

	envPrefix = "GAMECFG"

	// FileName is looked up in the working directory when no file is given.
	FileName = "gamecfg"

	SettingsArtifact = "engine_settings.json"
	ItemsArtifact    = "items.json"

	settingsBase = "config"
	itemsBase    = "items"
)

type Config struct {
	Root           string
	DataDir        string
	BuildDir       string
	SettingsSource string
	ItemsSource    string
	SaveDB         string
	IndexDB        string
	HistoryDir     string
	NotifyAddr     string
	DisableIndex   bool
	DisableHistory bool
	Publish        Publish
}

// Publish locates the bucket artifacts are mirrored to. Publishing is off
// unless both Endpoint and Bucket are set. Keys usually come from
// GAMECFG_PUBLISH_ACCESS_KEY and GAMECFG_PUBLISH_SECRET_KEY rather than the
// file.
type Publish struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

func (p Publish) Enabled() bool { return p.Endpoint != "" && p.Bucket != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyRoot, ".")
	v.SetDefault(keyDataDir, "Data")
	v.SetDefault(keyBuildDir, filepath.Join("Build", "Config"))
	v.SetDefault(keySettingsSource, "")
	v.SetDefault(keyItemsSource, "")
	v.SetDefault(keySaveDB, filepath.Join("Saves", "saves.db"))
	v.SetDefault(keyIndexDB, filepath.Join("Build", "index.db"))
	v.SetDefault(keyHistoryDir, filepath.Join("Build", "History"))
	v.SetDefault(keyNotifyAddr, "127.0.0.1:8091")
	v.SetDefault(keyDisableIndex, false)
	v.SetDefault(keyDisableHistory, false)
	v.SetDefault(keyPublishEndpoint, "")
	v.SetDefault(keyPublishBucket, "")
	v.SetDefault(keyPublishPrefix, "config")
	v.SetDefault(keyPublishAccessKey, "")
	v.SetDefault(keyPublishSecretKey, "")
}

// Default is the layout used when no config file or env override exists.
func Default(root string) Config {
	v := viper.New()
	setDefaults(v)
	v.Set(keyRoot, root)
	return fromViper(v)
}

// Load reads file (or ./gamecfg.yaml when file is empty) and GAMECFG_*
// environment overrides on top of the defaults. A missing default file is
// not an error; a missing explicit file is.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	root := v.GetString(keyRoot)
	if root == "" {
		root = "."
	}
	abs := func(key string) string {
		p := strings.TrimSpace(v.GetString(key))
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return Config{
		Root:           root,
		DataDir:        abs(keyDataDir),
		BuildDir:       abs(keyBuildDir),
		SettingsSource: abs(keySettingsSource),
		ItemsSource:    abs(keyItemsSource),
		SaveDB:         abs(keySaveDB),
		IndexDB:        abs(keyIndexDB),
		HistoryDir:     abs(keyHistoryDir),
		NotifyAddr:     strings.TrimSpace(v.GetString(keyNotifyAddr)),
		DisableIndex:   v.GetBool(keyDisableIndex),
		DisableHistory: v.GetBool(keyDisableHistory),
		Publish: Publish{
			Endpoint:  strings.TrimSpace(v.GetString(keyPublishEndpoint)),
			Bucket:    strings.TrimSpace(v.GetString(keyPublishBucket)),
			Prefix:    strings.TrimSpace(v.GetString(keyPublishPrefix)),
			AccessKey: v.GetString(keyPublishAccessKey),
			SecretKey: v.GetString(keyPublishSecretKey),
		},
	}
}

// SettingsPath is the explicit settings source, or the first of
// config.json, config.yaml, config.yml found in DataDir.
func (c Config) SettingsPath() string {
	if c.SettingsSource != "" {
		return c.SettingsSource
	}
	return loader.Resolve(c.DataDir, settingsBase)
}

func (c Config) ItemsPath() string {
	if c.ItemsSource != "" {
		return c.ItemsSource
	}
	return loader.Resolve(c.DataDir, itemsBase)
}

func (c Config) SettingsOutput() string { return filepath.Join(c.BuildDir, SettingsArtifact) }
func (c Config) ItemsOutput() string    { return filepath.Join(c.BuildDir, ItemsArtifact) }
