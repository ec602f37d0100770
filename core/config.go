package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		SecretKey    string
		RollbarToken string
		Store        string // StoreMemory | StorePostgres

		Database  DatabaseConfig
		Server    ServerConfig
		Redis     RedisConfig
		Lock      LockConfig
		Promotion PromotionConfig
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	// RedisConfig enables the distributed locker when Addr is set.
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	LockConfig struct {
		Wait time.Duration // how long to wait for a busy lock
		TTL  time.Duration // expiry of distributed locks
	}

	PromotionConfig struct {
		ChunkSize int
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the Config from env vars (prefixed by the ENV name) and the optional config/.env.<env> file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Academia")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "u8q!-zr2&w5+pk0=cl)n#1ax(7e@m4s%t9yj^d$vb3ho6f_gi")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("store", StoreMemory)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "academia")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lock.wait", 5*time.Second)
	v.SetDefault("lock.ttl", 30*time.Second)

	v.SetDefault("promotion.chunkSize", 100)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Store:        strings.ToLower(v.GetString("store")),
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Lock: LockConfig{
			Wait: v.GetDuration("lock.wait"),
			TTL:  v.GetDuration("lock.ttl"),
		},
		Promotion: PromotionConfig{
			ChunkSize: v.GetInt("promotion.chunkSize"),
		},
	}
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (env=%s, build=%s, store=%s)", c.AppName, c.Env, c.Build, c.Store)
}
