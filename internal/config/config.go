package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации редактора карт тайлов
type Config struct {
	Grid     GridConfig     `yaml:"grid"`
	Editor   EditorConfig   `yaml:"editor"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Storage  StorageConfig  `yaml:"storage"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type GridConfig struct {
	Width    int     `yaml:"width"`     // Ширина диапазона по каждой оси (W)
	TileSize float64 `yaml:"tile_size"` // Размер тайла в мировых единицах
}

type EditorConfig struct {
	Seed               int64 `yaml:"seed"`                // Сид случайных ориентаций (0: от времени)
	DefaultOrientation int   `yaml:"default_orientation"` // -1: случайная для каждого тайла
	HistoryDepth       int   `yaml:"history_depth"`       // Глубина стека отмены
}

type CatalogConfig struct {
	Path string `yaml:"path"` // YAML файл каталога шаблонов
	Name string `yaml:"name"` // Имя каталога, сохраняемое в документе
}

type StorageConfig struct {
	Backend  string      `yaml:"backend"`  // badger | redis | memory
	Path     string      `yaml:"path"`     // Директория BadgerDB
	Document string      `yaml:"document"` // UUID документа; пусто: первый сохранённый или новый
	Redis    RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // Пусто: in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Grid:    GridConfig{Width: 10000, TileSize: 1},
		Editor:  EditorConfig{DefaultOrientation: 0, HistoryDepth: 64},
		Catalog: CatalogConfig{Path: "assets/tiles.yaml", Name: "default"},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data",
			Redis:   RedisConfig{Addr: "localhost:6379", KeyPrefix: "tilemap:doc:"},
		},
		EventBus: EventBusConfig{Stream: "TILEMAP", Retention: 24, Buffer: 256},
		Logging:  LoggingConfig{Dir: "logs", ConsoleLevel: "INFO", FileLevel: "DEBUG", MaxSizeMB: 20, MaxBackups: 5},
	}
}

// GetMetricsPort возвращает порт Prometheus метрик: config -> env -> 0 (выключено)
func (s *ServerConfig) GetMetricsPort() int {
	return getIntWithEnvFallback(s.MetricsPort, "TILEMAP_METRICS_PORT", 0)
}

// GetRedisAddr возвращает адрес Redis с учётом переменной окружения
func (r *RedisConfig) GetRedisAddr() string {
	if env := os.Getenv("TILEMAP_REDIS_ADDR"); env != "" {
		return env
	}
	return r.Addr
}

// GetURL возвращает адрес NATS с учётом переменной окружения
func (e *EventBusConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	return os.Getenv("TILEMAP_NATS_URL")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV TILEMAP_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TILEMAP_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TTL время жизни документов в Redis; 0: без истечения
func (r *RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}
