package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groupdesk.org/internal/auth"
	"groupdesk.org/internal/httpapi"
	"groupdesk.org/internal/identity"
	"groupdesk.org/internal/obs"
	"groupdesk.org/internal/store/pg"
	"groupdesk.org/internal/wsconfig"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("GROUPDESK_PG_DSN")
	if dsn == "" {
		log.Fatal("GROUPDESK_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	resolver, err := auth.NewResolver(store, store)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	configEngine, err := wsconfig.NewEngine(store)
	if err != nil {
		log.Fatalf("config engine: %v", err)
	}

	provider := identity.NewClient(identity.WithBaseURLs(
		os.Getenv("GROUPDESK_IDENTITY_USERS_URL"),
		os.Getenv("GROUPDESK_IDENTITY_THUMBNAILS_URL"),
		os.Getenv("GROUPDESK_IDENTITY_GROUPS_URL"),
	))

	api := httpapi.New(httpapi.Deps{
		Users:       store,
		Workspaces:  store,
		Roles:       store,
		Memberships: store,
		Resolver:    resolver,
		Identity:    provider,
		Config:      configEngine,
		Workspace:   store,
		ReadyProbe:  httpapi.ReadyProbe{DB: store.DB()},
	}, version)

	addr := os.Getenv("GROUPDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting groupdesk-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
