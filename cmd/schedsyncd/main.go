package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"net/http"
	"time"

	"schedsync-backend/lib/configutil"
	"schedsync-backend/lib/recordstore"
	"schedsync-backend/lib/restyutil"
	"schedsync-backend/lib/scrapers/bookwidget"
	"schedsync-backend/lib/serviceutil"
	"schedsync-backend/lib/telemetry"
	"schedsync-backend/services/schedsync"

	"github.com/dgraph-io/badger/v4"
)

func initTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
		bookwidget.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/bookwidget"),
		)
	}

	tel, err := telemetry.SetupFromEnv(ctx, "schedsyncd")
	if err != nil {
		slog.WarnContext(ctx, "telemetry exporters disabled", "err", err)
		return
	}
	go func() {
		<-ctx.Done()
		tel.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)
}

func openStore(dbpath string) (recordstore.SqliteStore, error) {
	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return recordstore.SqliteStore{}, err
	}
	_, err = db.Exec(recordstore.Schema)
	if err != nil {
		return recordstore.SqliteStore{}, err
	}
	return recordstore.NewSqliteStore(db), nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	install := flag.Bool("install", false, "Run install-time discovery on startup.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	initTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		serviceutil.Fatal("open record store", err)
	}

	var cache *bookwidget.DescriptionCache
	if cfg.CacheDir != "" {
		cachedb, err := badger.Open(badger.DefaultOptions(cfg.CacheDir))
		if err != nil {
			serviceutil.Fatal("open description cache", err)
		}
		defer cachedb.Close()
		c := bookwidget.NewDescriptionCache(cachedb)
		cache = &c
	}

	client, err := bookwidget.NewClient(bookwidget.ClientOptions{
		BaseUrl: cfg.VendorBaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("init vendor client", err)
	}

	service := schedsync.NewService(schedsync.ServiceOptions{
		TargetUrl: cfg.TargetUrl,
		SiteID:    cfg.SiteID,
		Client:    client,
		Store:     store,
		Cache:     cache,
	})

	if *install {
		result := service.Install(ctx)
		if !result.Success {
			slog.ErrorContext(ctx, "install failed", "message", result.Message)
		} else {
			slog.InfoContext(
				ctx, "install complete",
				"message", result.Message,
				"site_id", result.Env[schedsync.SiteIDEnvKey],
			)
		}
	}

	go service.RefreshDaemon(ctx, time.Duration(cfg.RefreshIntervalMinutes)*time.Minute)

	mux := http.NewServeMux()
	registerHandlers(mux, service)

	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	go serviceutil.StartHttpServer(port, mux)
	<-ctx.Done()
}
