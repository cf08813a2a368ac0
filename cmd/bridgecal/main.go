package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bridgecal/internal/assistant"
	"bridgecal/internal/caldav"
	"bridgecal/internal/calendar"
	"bridgecal/internal/config"
	"bridgecal/internal/ics"
	"bridgecal/internal/index"
	appLog "bridgecal/internal/log"
	"bridgecal/internal/model"
	"bridgecal/internal/refresh"
	"bridgecal/internal/web"
)

type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	demo       bool
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	env, err := config.ReadEnv(flags.envPath)
	if err != nil {
		appLog.Error("failed to read environment", err, "env_path", flags.envPath)
		os.Exit(1)
	}
	env.Apply(conf)
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("bridgecal starting", "version", "0.1.0")

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone", err)
		os.Exit(1)
	}
	order, err := index.ParseOrder(conf.EventOrder)
	if err != nil {
		appLog.Error("invalid event order", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"feeds", len(conf.Feeds),
		"caldav", conf.CalDAV.Enabled(),
		"assistant", conf.Assistant.APIKey != "",
		"demo", flags.demo,
		"once", flags.once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	board := newBoard(conf, loc, order, flags.demo)
	refresher := newRefresher(conf, board, loc)

	if flags.once {
		failed := refresher.RunOnce(ctx)
		appLog.Info("single refresh finished", "failed", failed, "events", len(board.Events(model.FilterAll)))
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	parser := newParser(ctx, conf)
	srv := web.NewServer(web.Options{
		Board:       board,
		Parser:      parser,
		Submissions: assistant.NewSubmissions(),
		Sources:     refresher,
		WeekStart:   conf.FirstWeekday(),
		BasicAuth:   conf.BasicAuth,
	})

	httpServer := &http.Server{
		Addr:         conf.Listen,
		Handler:      srv.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 45 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		refresher.RunOnce(ctx)
		if err := refresher.Start(ctx, conf.RefreshCron); err != nil {
			appLog.Error("refresh scheduler failed", err)
			cancel()
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-serverErr:
		if err != nil {
			appLog.Error("http server failed", err)
		}
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown", err)
	}
	wg.Wait()
	appLog.Info("bridgecal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/bridgecal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional .env file with secrets")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.demo, "demo", false, "Seed the board with the sample household")
	flag.BoolVar(&cfg.once, "once", false, "Refresh every source once and exit")

	flag.Parse()

	return cfg
}

func newBoard(conf *config.Config, loc *time.Location, order index.Order, demo bool) *calendar.Board {
	opts := calendar.Options{Location: loc, Order: order}
	if demo {
		g, members, events := calendar.Demo(loc)
		return calendar.NewBoard(g, members, events, opts)
	}
	g, members := conf.Roster()
	return calendar.NewBoard(g, members, nil, opts)
}

// newParser returns a Parser with no generator when the API key is missing,
// so the assistant reports itself unavailable instead of failing startup.
func newParser(ctx context.Context, conf *config.Config) *assistant.Parser {
	gen, err := assistant.NewGemini(ctx, assistant.GeminiConfig{
		APIKey:   conf.Assistant.APIKey,
		Model:    conf.Assistant.Model,
		Endpoint: conf.Assistant.Endpoint,
	})
	if err != nil {
		if errors.Is(err, assistant.ErrNotConfigured) {
			appLog.Warn("assistant disabled: GEMINI_API_KEY not set")
		} else {
			appLog.Error("assistant disabled", err)
		}
		return assistant.NewParser(nil)
	}
	return assistant.NewParser(gen)
}

func newRefresher(conf *config.Config, board *calendar.Board, loc *time.Location) *refresh.Refresher {
	owner := board.Group().OwnerID
	feeds := make([]ics.Source, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		src := ics.Source{ID: f.ID, Name: f.Name, URL: f.URL, Provider: model.Provider(f.Provider), OwnerID: f.Owner}
		if src.OwnerID == "" {
			src.OwnerID = owner
		}
		feeds = append(feeds, src)
	}

	r := refresh.New(board, ics.NewFetcher(conf.CacheDir, nil), feeds, refresh.Options{
		Location:     loc,
		BackfillDays: conf.BackfillDays,
		HorizonDays:  conf.HorizonDays,
	})

	if conf.CalDAV.Enabled() {
		ownerID := conf.CalDAV.Owner
		if ownerID == "" {
			ownerID = owner
		}
		src, err := caldav.New(caldav.Config{
			URL:      conf.CalDAV.URL,
			Username: conf.CalDAV.Username,
			Password: conf.CalDAV.Password,
			Calendar: conf.CalDAV.Calendar,
			OwnerID:  ownerID,
		}, nil)
		if err != nil {
			appLog.Error("caldav disabled", err)
		} else {
			r.AddSource(caldav.SourceID, model.ProviderApple, src)
		}
	}
	return r
}
