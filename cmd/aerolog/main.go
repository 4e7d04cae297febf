package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"github.com/aerobiclabs/aerolog/internal/cache"
	"github.com/aerobiclabs/aerolog/internal/handlers/account"
	"github.com/aerobiclabs/aerolog/internal/handlers/auth"
	"github.com/aerobiclabs/aerolog/internal/handlers/settings"
	"github.com/aerobiclabs/aerolog/internal/handlers/workouts"
	"github.com/aerobiclabs/aerolog/internal/logger"
	"github.com/aerobiclabs/aerolog/internal/middleware"
	"github.com/aerobiclabs/aerolog/internal/remote"
	"github.com/aerobiclabs/aerolog/internal/session"
	"github.com/aerobiclabs/aerolog/internal/sync"
)

func main() {
	ctx := context.Background()
	logg := logger.NewLogger()

	che, err := cache.NewRedisCache(ctx, os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatal("unable to connect to redis: ", err)
	}

	backendURL, err := url.Parse(os.Getenv("SUPABASE_URL"))
	if err != nil || backendURL.Host == "" {
		log.Fatal("SUPABASE_URL environment variable is not a valid URL")
	}
	apikey := os.Getenv("SUPABASE_ANON_KEY")

	// Self-hosted deployments can point straight at the database and
	// skip the hosted REST layer.
	var store remote.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := remote.OpenPostgres(dsn)
		if err != nil {
			log.Fatal("unable to connect to database: ", err)
		}
		store = remote.NewPostgresStore(db)
	} else {
		store = remote.NewRESTStore(backendURL, apikey, nil)
	}

	provider := session.NewCacheProvider(backendURL, apikey, che, nil, logg)
	synchronizer := sync.New(che, store, provider, logg)

	workoutsHandler := workouts.NewHandler(synchronizer, logg)
	settingsHandler := settings.NewHandler(synchronizer, logg)
	accountHandler := account.NewHandler(synchronizer, logg)
	authHandler := auth.NewHandler(provider, synchronizer, logg)

	http.HandleFunc("/", indexHandler)
	http.HandleFunc("/api/workouts", workoutsHandler.Collection)
	http.HandleFunc("/api/workouts/import", workoutsHandler.Import)
	http.HandleFunc("/api/workouts/export", workoutsHandler.Export)
	http.HandleFunc("/api/workouts/", workoutsHandler.Item)
	http.HandleFunc("/api/settings", settingsHandler.Settings)
	http.HandleFunc("/api/settings/body-weight", settingsHandler.BodyWeight)
	http.HandleFunc("/api/auth/otp", authHandler.RequestOTP)
	http.HandleFunc("/api/auth/verify", authHandler.Verify)
	http.HandleFunc("/api/auth/signout", authHandler.SignOut)
	http.Handle("/api/account/sync", middleware.RequireAuthentication(http.HandlerFunc(accountHandler.Sync)))
	http.Handle("/api/account/clear", middleware.RequireAuthentication(http.HandlerFunc(accountHandler.Clear)))
	http.Handle("/api/account", middleware.RequireAuthentication(http.HandlerFunc(accountHandler.Delete)))

	port := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		port = ":" + val
	}
	log.Println("Starting server on port", port)
	log.Fatal(http.ListenAndServe(port, nil)) //#nosec: G114
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("Aerolog")); err != nil {
		log.Println(err)
	}
}
