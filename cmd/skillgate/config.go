package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

var config Config

type Config struct {
	HttpServer    HttpServerConfig     `yaml:"httpServer"`
	Logger        *LoggerConfig        `yaml:"logger,omitempty"`
	Routes        *[]Route             `yaml:"routes,omitempty"`
	Alexa         *AlexaConfig         `yaml:"alexa,omitempty"`
	Authorization *AuthorizationConfig `yaml:"authorization,omitempty"`
}

type HttpServerConfig struct {
	Port              int            `yaml:"port"`
	MaxConnections    int            `yaml:"maxConnections,omitempty"`
	ReadTimeout       int            `yaml:"readTimeout,omitempty"`       // milliseconds
	ReadHeaderTimeout int            `yaml:"readHeaderTimeout,omitempty"` // milliseconds
	WriteTimeout      int            `yaml:"writeTimeout,omitempty"`      // milliseconds
	IdleTimeout       int            `yaml:"idleTimeout,omitempty"`       // milliseconds
	MaxHeaderBytes    int            `yaml:"maxHeaderBytes,omitempty"`
	Log               *HttpLogConfig `yaml:"log,omitempty"`
	Gzip              *GzipConfig    `yaml:"gzip,omitempty"`
	TLSFiles          *TLSFiles      `yaml:"tlsFiles,omitempty"`
	TLSAcme           *TLSAcme       `yaml:"tlsAcme,omitempty"`
}

type HttpLogConfig struct {
	Dir            string        `yaml:"dir"`
	File           string        `yaml:"file,omitempty"`
	DirMode        os.FileMode   `yaml:"dirMode,omitempty"`
	FileMode       os.FileMode   `yaml:"fileMode,omitempty"`
	MaxSize        string        `yaml:"maxSize,omitempty"`
	MaxAge         string        `yaml:"maxAge,omitempty"`
	Backups        int           `yaml:"backups,omitempty"`
	BackupDays     int           `yaml:"backupDays,omitempty"`
	Archive        string        `yaml:"archive,omitempty"`
	MaxSizeBytes   int64         `yaml:"-"`
	MaxAgeDuration time.Duration `yaml:"-"`
}

type GzipConfig struct {
	Level    int      `yaml:"level,omitempty"`
	Includes []string `yaml:"includes,omitempty"`
	Excludes []string `yaml:"excludes,omitempty"`
}

type TLSFiles struct {
	Certificate string `yaml:"certificate,omitempty"`
	Key         string `yaml:"key,omitempty"`
}

type TLSAcme struct {
	Email         string   `yaml:"email,omitempty"`
	HostWhitelist []string `yaml:"hostWhitelist,omitempty"`
	RenewBefore   uint32   `yaml:"renewBefore,omitempty"` // days
	CacheDir      string   `yaml:"cacheDir,omitempty"`
	DirectoryURL  string   `yaml:"directoryURL,omitempty"`
}

type LoggerConfig struct {
	Env   string `yaml:"env,omitempty"`   // dev or prod
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

type Route struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path,omitempty"`
	RateLimit   string `yaml:"rateLimit,omitempty"`
	MaxBodySize string `yaml:"maxBodySize,omitempty"`
	Methods     string `yaml:"methods,omitempty"`
}

type AlexaConfig struct {
	ApplicationIDs     []string                `yaml:"applicationIds,omitempty"`
	PreferSignature256 bool                    `yaml:"preferSignature256,omitempty"`
	Certificate        *AlexaCertificateConfig `yaml:"certificate,omitempty"`
	Responses          *AlexaResponses         `yaml:"responses,omitempty"`
	ResponsesConfig    string                  `yaml:"responsesConfig,omitempty"`
}

type AlexaCertificateConfig struct {
	Host               string                 `yaml:"host,omitempty"`
	PathPrefix         string                 `yaml:"pathPrefix,omitempty"`
	Port               int                    `yaml:"port,omitempty"`
	ServiceDomain      string                 `yaml:"serviceDomain,omitempty"`
	TimestampTolerance string                 `yaml:"timestampTolerance,omitempty"`
	MaxFutureSkew      string                 `yaml:"maxFutureSkew,omitempty"`
	FetchTimeout       string                 `yaml:"fetchTimeout,omitempty"`
	MaxSize            string                 `yaml:"maxSize,omitempty"`
	VerifyChain        bool                   `yaml:"verifyChain,omitempty"`
	Cache              *AlexaCertificateCache `yaml:"cache,omitempty"`
}

type AlexaCertificateCache struct {
	Driver string      `yaml:"driver,omitempty"` // memory or redis
	TTL    string      `yaml:"ttl,omitempty"`
	Redis  *RedisCache `yaml:"redis,omitempty"`
}

type RedisCache struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type AlexaResponses struct {
	Launch        string            `yaml:"launch,omitempty"`
	Help          string            `yaml:"help,omitempty"`
	Stop          string            `yaml:"stop,omitempty"`
	Fallback      string            `yaml:"fallback,omitempty"`
	LinkAccount   string            `yaml:"linkAccount,omitempty"`
	CardTitle     string            `yaml:"cardTitle,omitempty"`
	SmallImageURL string            `yaml:"smallImageUrl,omitempty"`
	LargeImageURL string            `yaml:"largeImageUrl,omitempty"`
	Intents       map[string]string `yaml:"intents,omitempty"`
}

type AuthorizationConfig struct {
	TokenSecret string `yaml:"tokenSecret,omitempty"`
	Scope       string `yaml:"scope,omitempty"`
	LifeTime    string `yaml:"lifeTime,omitempty"`
}

type configError func(msg string)

func loadConfig(cfgFile string) error {
	config = Config{}
	if err := loadSubConfig(cfgFile, &config); err != nil {
		return err
	}

	var errors strings.Builder
	cfgError := func(msg string) {
		errors.WriteString(NewLine + "  " + msg)
	}

	validate := []func(cfgError configError){
		validateLoggerConfig,
		validateHttpServerConfig,
		validateRouteConfig,
		validateAuthorizationConfig,
		validateAlexaConfig,
	}
	for _, v := range validate {
		v(cfgError)
	}

	if errors.Len() > 0 {
		return fmt.Errorf("Configuration file '%v' is invalid:%v", cfgFile, errors.String())
	}
	return nil
}

func loadSubConfig(cfgFile string, v interface{}) error {
	file, err := os.Open(cfgFile)
	if err != nil {
		return fmt.Errorf("Unable to open configuration file: %v", err)
	}
	defer file.Close()

	err = yaml.NewDecoder(file).Decode(v)
	if err != nil {
		return fmt.Errorf("Unable to parse configuration file: %v", err)
	}
	return nil
}
