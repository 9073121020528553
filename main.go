package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"aquasense/db"
	httpapi "aquasense/http"
	"aquasense/logging"
	"aquasense/monitoring"
	"aquasense/registry"
	"aquasense/train"
)

// Config is the top-level service configuration.
type Config struct {
	Dataset struct {
		Path     string `yaml:"path"`
		Encoding string `yaml:"encoding"`
	} `yaml:"dataset"`
	Models struct {
		Dir string `yaml:"dir"`
	} `yaml:"models"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	HTTP struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Cache struct {
		Predictions int `yaml:"predictions"`
	} `yaml:"cache"`
	Log      logging.Config `yaml:"log"`
	Training train.Config   `yaml:"training"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "aquasense.db"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.TimeoutSeconds == 0 {
		cfg.HTTP.TimeoutSeconds = 30
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.Training.DataPath == "" {
		cfg.Training.DataPath = cfg.Dataset.Path
	}
	if cfg.Training.Encoding == "" {
		cfg.Training.Encoding = cfg.Dataset.Encoding
	}
	if cfg.Training.ModelsDir == "" {
		cfg.Training.ModelsDir = cfg.Models.Dir
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	defer logger.Sync()

	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	hub := monitoring.NewHub(logger.Named("monitor"))
	go hub.Start()
	defer hub.Stop()

	reg := registry.NewRegistry(cfg.Models.Dir, logger.Named("registry"))
	reg.OnReload(func(meta registry.Metadata) {
		hub.Publish(monitoring.ModelReloaded, meta)
	})
	if err := reg.Reload(); err != nil {
		logger.Warn("no model bundle loaded yet, predictions unavailable until trained",
			zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := reg.Watch(ctx); err != nil && err != context.Canceled {
			logger.Error("artifact watcher stopped", zap.Error(err))
		}
	}()

	httpapi.SetLogger(logger.Named("http"))
	httpapi.SetRegistry(reg)
	httpapi.SetMonitorHub(hub)
	httpapi.SetTrainingConfig(&cfg.Training)
	if err := httpapi.InitPredictionCache(cfg.Cache.Predictions); err != nil {
		logger.Fatal("init prediction cache", zap.Error(err))
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxRequestBody: 1 << 20,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
