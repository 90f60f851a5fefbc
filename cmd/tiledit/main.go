package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/tilemap-editor/internal/catalog"
	"github.com/annel0/tilemap-editor/internal/config"
	"github.com/annel0/tilemap-editor/internal/document"
	"github.com/annel0/tilemap-editor/internal/eventbus"
	"github.com/annel0/tilemap-editor/internal/history"
	"github.com/annel0/tilemap-editor/internal/logging"
	"github.com/annel0/tilemap-editor/internal/scene"
	"github.com/annel0/tilemap-editor/internal/storage"
	"github.com/annel0/tilemap-editor/internal/tilemap"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $TILEMAP_CONFIG)")
	docID := flag.String("doc", "", "UUID документа для открытия")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if *docID != "" {
		cfg.Storage.Document = *docID
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("Редактор завершился с ошибкой: %v", err)
		fmt.Fprintf(os.Stderr, "tiledit: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging направляет логи только в файлы: консоль занята терминальным UI
func setupLogging(cfg config.LoggingConfig) error {
	consoleLevel, err := logging.ParseLevel(cfg.ConsoleLevel)
	if err != nil {
		return err
	}
	fileLevel, err := logging.ParseLevel(cfg.FileLevel)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{
		Dir:             cfg.Dir,
		MinConsoleLevel: consoleLevel,
		MinFileLevel:    fileLevel,
		MaxSizeMB:       cfg.MaxSizeMB,
		MaxBackups:      cfg.MaxBackups,
		Console:         io.Discard,
	})
	return logging.InitDefaultLogger("tiledit")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Запуск редактора карт тайлов")

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := tilemap.NewMetrics(registry)

	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		return err
	}
	exporter := eventbus.NewMetricsExporter(bus, registry)
	exporter.Start()
	defer exporter.Stop()

	if port := cfg.Server.GetMetricsPort(); port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("Prometheus /metrics доступен по адресу %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	journal, err := history.NewJournal(cfg.Editor.HistoryDepth)
	if err != nil {
		return err
	}
	defer journal.Close()

	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	sc := scene.New(cat)
	opts := document.Options{
		Width:           cfg.Grid.Width,
		TileSize:        cfg.Grid.TileSize,
		DefaultTemplate: firstTemplate(cat),
		CatalogName:     cfg.Catalog.Name,
		Instancer:       sc,
		Seed:            cfg.Editor.Seed,
		Journal:         journal,
		Bus:             bus,
		Metrics:         metrics,
	}
	doc, err := openDocument(ctx, repo, cfg.Storage.Document, opts)
	if err != nil {
		return err
	}
	defer doc.Close()
	logging.Info("Документ %s: %d тайлов", doc.ID(), doc.Count())

	a, err := newApp(cfg, doc, journal, sc, cat, repo)
	if err != nil {
		return err
	}
	defer a.close()
	return a.run(ctx)
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn("Каталог %s не найден, используется встроенный", cfg.Path)
		return catalog.New(cfg.Name, []catalog.Template{
			{Name: "grass", Glyph: "\"", Color: "green"},
			{Name: "stone", Glyph: "#", Color: "gray"},
			{Name: "water", Glyph: "~", Color: "blue"},
		})
	}
	return cat, err
}

func firstTemplate(cat *catalog.Catalog) tilemap.TemplateRef {
	if t, ok := cat.At(0); ok {
		return t.Ref()
	}
	return tilemap.NoTemplate
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if url := cfg.GetURL(); url != "" {
		bus, err := eventbus.NewJetStreamBus(url, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err != nil {
			return nil, err
		}
		logging.Info("EventBus: NATS JetStream %s, стрим %s", url, cfg.Stream)
		return bus, nil
	}
	return eventbus.NewMemoryBus(cfg.Buffer), nil
}

// openDocument открывает документ по id; без id: первый сохранённый или новый
func openDocument(ctx context.Context, repo storage.DocumentRepo, id string, opts document.Options) (*document.Document, error) {
	if id == "" {
		ids, err := repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return document.New(opts)
		}
		id = ids[0]
	}

	rec, found, err := repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		logging.Warn("Документ %s не найден, создаётся новый", id)
		return document.New(opts)
	}
	return document.Open(opts, rec)
}
