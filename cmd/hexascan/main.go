package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/hexascan-dev/hexascan/db"
	"github.com/hexascan-dev/hexascan/internal/auth"
	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/handlers"
	"github.com/hexascan-dev/hexascan/internal/notify"
	"github.com/hexascan-dev/hexascan/internal/router"
	"github.com/hexascan-dev/hexascan/internal/store"
	"github.com/hexascan-dev/hexascan/internal/sweeper"
	"github.com/hexascan-dev/hexascan/internal/tokens"
	"github.com/hexascan-dev/hexascan/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT secret: %v", err)
	}

	cfg, err := types.LoadEngineConfig()

	if err != nil {
		log.Fatalf("Failed to load engine config: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")

	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	clock := clockwork.NewRealClock()
	issueStore := store.NewGormStore(db.DB)
	codec := tokens.NewCodec(cfg.TokenSecret, clock)

	dispatcher := notify.Fanout{
		notify.LogDispatcher{},
		notify.NewWebhookDispatcher(db.DB),
	}

	engine := escalation.NewEngine(issueStore, codec, dispatcher, clock, escalation.Config{
		Window:        cfg.EscalationWindow,
		TokenTTL:      cfg.TokenTTL,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	engine.OnEvent(handlers.BroadcastEvent)

	handlers.Init(engine, codec, issueStore)

	sw := sweeper.NewSweeper(issueStore, engine, clock, cfg.SweepInterval, cfg.SweepTimeout)
	sw.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		sw.Stop()
		os.Exit(0)
	}()

	r := router.NewRouter()

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
