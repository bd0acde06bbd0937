package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	AllowCIDR string `yaml:"allow_cidr" json:"allow_cidr"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"` // token lifetime in hours
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system" json:"system"`
	Web      WebConfig `yaml:"web" json:"web"`
	Database DBConfig  `yaml:"database" json:"database"`
	Logger   LogConfig `yaml:"logger" json:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetBackupDir() string {
	return filepath.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.System.Workdir, 0o755)
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
	_ = os.MkdirAll(c.GetBackupDir(), 0o755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "webstore",
		Location: "Asia/Jakarta",
		Workdir:  "/var/webstore",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-webstore-0cc5-47ff",
		JwtExpire: 24,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "webstore",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/webstore/webstore.log",
	},
}

func setEnvValue(name string, val *string) {
	if v, ok := os.LookupEnv(name); ok {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v, ok := os.LookupEnv(name); ok {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v, ok := os.LookupEnv(name); ok {
		*val = cast.ToInt(v)
	}
}

// LoadConfig reads the YAML configuration file and applies WEBSTORE_*
// environment overrides. A missing file falls back to DefaultAppConfig.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		}
	}

	setEnvValue("WEBSTORE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("WEBSTORE_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("WEBSTORE_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("WEBSTORE_WEB_HOST", &cfg.Web.Host)
	setEnvValue("WEBSTORE_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("WEBSTORE_WEB_ALLOW_CIDR", &cfg.Web.AllowCIDR)
	setEnvIntValue("WEBSTORE_WEB_PORT", &cfg.Web.Port)
	setEnvIntValue("WEBSTORE_WEB_JWT_EXPIRE", &cfg.Web.JwtExpire)

	setEnvValue("WEBSTORE_DB_TYPE", &cfg.Database.Type)
	setEnvValue("WEBSTORE_DB_HOST", &cfg.Database.Host)
	setEnvValue("WEBSTORE_DB_NAME", &cfg.Database.Name)
	setEnvValue("WEBSTORE_DB_USER", &cfg.Database.User)
	setEnvValue("WEBSTORE_DB_PWD", &cfg.Database.Passwd)
	setEnvIntValue("WEBSTORE_DB_PORT", &cfg.Database.Port)
	setEnvBoolValue("WEBSTORE_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("WEBSTORE_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("WEBSTORE_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("WEBSTORE_LOGGER_FILENAME", &cfg.Logger.Filename)

	cfg.initDirs()
	return cfg
}
