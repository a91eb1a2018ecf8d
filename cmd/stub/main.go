package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storeratings/internal/api"
	"storeratings/internal/stub"
	"storeratings/pkg/jwt"
)

func main() {
	// ── 1. JWT secret ──
	if err := jwt.Init(env("JWT_SECRET", "dev-secret")); err != nil {
		log.Fatal(err)
	}

	// ── 2. In-memory backend ──
	srv := stub.NewServer()

	// ── 3. Optional demo data ──
	if env("SEED", "1") == "1" {
		seed(srv)
	}

	// ── 4. HTTP server ──
	port := env("PORT", "8080")
	httpSrv := &http.Server{Addr: ":" + port, Handler: srv.Routes()}

	go func() {
		log.Printf("stub backend listening on :%s", port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 5. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutCtx)
}

func seed(srv *stub.Server) {
	mustSeed := func(id int64, err error) int64 {
		if err != nil {
			log.Fatal(err)
		}
		return id
	}
	mustSeed(srv.Seed("Site Administrator", "admin@example.com", "admin@123456", api.RoleAdmin))
	ownerID := mustSeed(srv.Seed("Store Owner", "owner@example.com", "owner@123456", api.RoleOwner))
	mustSeed(srv.Seed("Normal User", "user@example.com", "user@123456", api.RoleUser))
	mustSeed(srv.SeedStore("Corner Grocery", "grocery@example.com", ownerID))
	mustSeed(srv.SeedStore("Book Nook", "books@example.com", ownerID))
	log.Println("seeded demo accounts (admin/owner/user @example.com)")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
