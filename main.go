package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"inmobot/config"
	"inmobot/controllers"
	"inmobot/db"
	"inmobot/dialogue"
	"inmobot/importer"
	"inmobot/router"
	"inmobot/scheduler"
	"inmobot/search"
	"inmobot/sessions"
	"inmobot/store"
	"inmobot/tools"
	"inmobot/workers"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.json", "arquivo de configuração (JSON)")
	importPath := flag.String("import", "", "importa o CSV (;) de imóveis e sai")
	manualPath := flag.String("manual", "", "carrega o manual de gestão (.txt) e sai")
	flag.Parse()

	cfg := config.Get(*configPath)
	setupLog(cfg.LogPath)

	db.SetConfigurations(cfg)
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listings := store.NewListings(database)
	visits := store.NewVisits(database)
	manual := store.NewManual(database)

	if *importPath != "" {
		if _, err := importer.New(listings).ImportFile(ctx, *importPath); err != nil {
			log.Fatalf("import: %v", err)
		}
		return
	}
	if *manualPath != "" {
		content, err := os.ReadFile(*manualPath)
		if err != nil {
			log.Fatalf("manual: %v", err)
		}
		n, err := manual.Replace(ctx, filepath.Base(*manualPath), string(content))
		if err != nil {
			log.Fatalf("manual: %v", err)
		}
		log.Printf("manual: %s carregado em %d trechos", filepath.Base(*manualPath), n)
		return
	}

	loc := cfg.Location()

	// OpenAI é opcional: sem api key o bot segue só com filtros e menus.
	var llm *tools.OpenAI
	if cfg.OpenAI.ApiKey != "" {
		llm = tools.NewOpenAI(cfg.OpenAI.ApiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.SystemPrompt)
	}

	var searchOpts []search.Option
	if llm != nil && cfg.OpenAI.EnableRanker {
		searchOpts = append(searchOpts, search.WithRanker(search.CosineRanker{Embedder: llm}, cfg.OpenAITimeout(), cfg.OpenAI.MinScore))
	}
	engine := search.NewEngine(listings, searchOpts...)

	var schedOpts []scheduler.Option
	if cfg.Calendar.Enabled {
		cal, err := tools.NewGoogleCalendar(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID,
			time.Duration(cfg.Calendar.DurationMinutes)*time.Minute, loc)
		if err != nil {
			log.Printf("calendar: disabled: %v", err)
		} else {
			schedOpts = append(schedOpts, scheduler.WithCalendar(cal, cfg.CalendarTimeout()))
		}
	}
	sched := scheduler.New(visits, schedOpts...)

	var sessionStore sessions.Store = sessions.NewMemory()
	if cfg.Sessions.Backend == "redis" {
		client, err := sessions.DialRedis(ctx, cfg.Sessions.RedisURL)
		if err != nil {
			log.Fatalf("sessions: %v", err)
		}
		defer client.Close()
		sessionStore = sessions.NewRedis(client, cfg.Sessions.RedisPrefix)
		log.Printf("sessions: using redis at %s", cfg.Sessions.RedisURL)
	}

	classifier, err := dialogue.NewClassifier(cfg.Bot.ReferencePattern)
	if err != nil {
		log.Fatalf("bot: reference_pattern: %v", err)
	}
	botOpts := []dialogue.Option{
		dialogue.WithClassifier(classifier),
		dialogue.WithLocation(loc),
		dialogue.WithTexts(cfg.Bot.AgencyName, cfg.Bot.ContactText),
	}
	if llm != nil && cfg.OpenAI.EnableAnswerer {
		botOpts = append(botOpts, dialogue.WithAnswerer(llm, cfg.OpenAITimeout()))
		if cfg.OpenAI.EnableManual {
			lookup := search.NewManual(manual, search.CosineRanker{Embedder: llm}, cfg.OpenAI.ManualMinScore)
			botOpts = append(botOpts, dialogue.WithManual(lookup))
		}
	}
	bot := dialogue.New(engine, sched, sessionStore, botOpts...)

	// Workers
	var sender workers.Sender
	if cfg.WhatsApp.NoSend {
		log.Println("whatsapp: no_send ativo, respostas ficam só no evento")
	} else {
		sender = tools.WhatsAppClient{
			AccessToken:   cfg.WhatsApp.AccessToken,
			ApiVersion:    cfg.WhatsApp.ApiVersion,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		}
	}
	dispatcher := workers.NewDispatcher(cfg.Bot.MaxWorkers)
	processor := workers.NewEventProcessor(database, bot, sender, dispatcher)
	processor.Start(ctx)

	if llm != nil && (cfg.OpenAI.EnableRanker || cfg.OpenAI.EnableManual) {
		var indexManual *store.Manual
		if cfg.OpenAI.EnableManual {
			indexManual = manual
		}
		indexer := workers.NewIndexer(listings, indexManual, llm, time.Duration(cfg.OpenAI.IndexEvery)*time.Minute)
		if err := indexer.Start(); err != nil {
			log.Printf("indexer: %v", err)
		}
		defer indexer.Stop()
	}

	sweeper := sessions.NewSweeper(sessionStore, cfg.SessionIdle(), time.Duration(cfg.Sessions.SweepInterval)*time.Minute)
	if err := sweeper.Start(); err != nil {
		log.Printf("sessions: sweeper: %v", err)
	}
	defer sweeper.Stop()

	app := &controllers.App{
		Config:    cfg,
		Engine:    bot,
		Listings:  listings,
		Manual:    manual,
		Search:    engine,
		Visits:    visits,
		Scheduler: sched,
		Sweeper:   sweeper,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	router.Initialize(r, cfg, app, database)

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Printf("inmobot listening on :%s", cfg.ApiPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	// termina os turnos em andamento antes de fechar o banco
	dispatcher.Wait()
	log.Println("inmobot stopped")
}

// setupLog duplica o log no arquivo configurado.
func setupLog(path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("log: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("log: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}
