package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aulavirtual.org/internal/auth"
	"aulavirtual.org/internal/httpapi"
	"aulavirtual.org/internal/obs"
	"aulavirtual.org/internal/store/pg"
	"aulavirtual.org/internal/users"
)

var version = "0.3.1"

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("AULA_COMMIT"))

	dsn := os.Getenv("AULA_PG_DSN")
	if dsn == "" {
		log.Fatal("AULA_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	codecOpts := []auth.CodecOption{}
	if issuer := os.Getenv("AULA_JWT_ISSUER"); issuer != "" {
		codecOpts = append(codecOpts, auth.WithIssuer(issuer))
	}
	if ttl := envMillis("AULA_JWT_ACCESS_TTL_MS"); ttl > 0 {
		codecOpts = append(codecOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := envMillis("AULA_JWT_REFRESH_TTL_MS"); ttl > 0 {
		codecOpts = append(codecOpts, auth.WithRefreshTTL(ttl))
	}
	codec, err := auth.NewCodec(os.Getenv("AULA_JWT_SECRET"), codecOpts...)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	authSvc, err := auth.NewService(store, codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	userSvc, err := users.NewService(store, store)
	if err != nil {
		log.Fatalf("users service: %v", err)
	}

	api := httpapi.New(authSvc, userSvc, httpapi.ReadyProbe{DB: store.DB()}, version, httpapi.Options{
		AllowedOrigins: splitEnvList("AULA_CORS_ORIGINS"),
	})

	addr := os.Getenv("AULA_HTTP_ADDR")
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

	log.Printf("Starting aula-virtual-api %s on %s", version, srv.Addr)

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

func envMillis(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		log.Fatalf("%s: invalid duration %q", key, raw)
	}
	return time.Duration(ms) * time.Millisecond
}

func splitEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
