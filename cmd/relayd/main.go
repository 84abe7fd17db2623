package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"global-relay/pkg/api"
	"global-relay/pkg/auth"
	"global-relay/pkg/db"
	"global-relay/pkg/relay"
	"global-relay/pkg/store"
	"global-relay/pkg/version"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	storeType := flag.String("store", "memory", "directory backend: memory|consul (requires build tag consul)")
	consulAddr := flag.String("consul-addr", "127.0.0.1:8500", "consul address (when store=consul)")
	tlsCert := flag.String("tls-cert", "", "TLS cert path (enables HTTPS if set with --tls-key)")
	tlsKey := flag.String("tls-key", "", "TLS key path (enables HTTPS if set with --tls-cert)")
	clientCA := flag.String("client-ca", "", "require and verify client certs using this CA (optional)")
	sweepInterval := flag.Duration("sweep-interval", relay.SweepInterval, "liveness sweep interval")
	idleTimeout := flag.Duration("idle-timeout", relay.IdleTimeout, "evict nodes idle longer than this")
	flag.Parse()

	_ = godotenv.Load()

	var dir store.Directory
	switch *storeType {
	case "consul":
		dir = store.NewConsulDirectory(*consulAddr)
	case "memory":
		dir = store.NewMemoryDirectory()
	default:
		log.Fatalf("unsupported store type: %s", *storeType)
	}

	var mirror *db.AuditLog
	if path := os.Getenv("RELAY_AUDIT_DB"); path != "" {
		var err error
		mirror, err = db.OpenAuditLog(path)
		if err != nil {
			log.Fatalf("failed to open audit db %s: %v", path, err)
		}
		defer mirror.Close()
		log.Printf("audit mirror enabled at %s", path)
	}

	verifier := auth.NewWalletVerifier()
	counters := relay.NewCounters()
	hub := api.NewNotifyHub()

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, dir, verifier, counters, hub, mirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay.StartSweeper(ctx, dir, *sweepInterval, *idleTimeout, hub.Close)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("relay %s listening on %s", version.Build, *addr)
	var err error
	if *tlsCert != "" && *tlsKey != "" {
		if *clientCA != "" {
			cfg, errTLS := api.ServerTLSConfig(*tlsCert, *tlsKey, *clientCA)
			if errTLS != nil {
				log.Fatalf("failed to build TLS config: %v", errTLS)
			}
			srv.TLSConfig = cfg
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		}
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}
