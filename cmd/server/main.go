package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/ognivo/streak-api/internal/api"
	"github.com/ognivo/streak-api/internal/config"
	"github.com/ognivo/streak-api/internal/repository"
	"github.com/ognivo/streak-api/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	var store repository.Store
	switch cfg.Driver {
	case "sqlite":
		store, err = repository.NewSQLiteStore(cfg.SQLitePath)
	default:
		store, err = repository.NewPostgresStore(cfg.DBConnString)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	svc := service.NewStreakService(store, store, store)
	handler := api.New(svc)

	log.Printf("listening on %s (%s store)", cfg.Addr, cfg.Driver)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal(err)
	}
}
