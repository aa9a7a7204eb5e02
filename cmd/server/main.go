package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	attendeehandler "gatepass/internal/attendee/handler"
	"gatepass/internal/attendee/metrics"
	attendeeservice "gatepass/internal/attendee/service"
	attendeestore "gatepass/internal/attendee/store"
	"gatepass/internal/dedup"
	"gatepass/internal/facematch"
	gatepasshttp "gatepass/internal/http"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/httpserver"
	"gatepass/internal/platform/logger"
	platformredis "gatepass/internal/platform/redis"
	"gatepass/internal/scan"
	"gatepass/internal/sector"
	"gatepass/internal/supplier"
	"gatepass/pkg/platform/audit"
	"gatepass/pkg/platform/middleware/actor"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise. Suppliers and
	// sectors share the fate of the attendee store so references stay valid
	// across restarts.
	var attStore attendeestore.Store
	var supplierStore supplier.Store
	var sectorStore sector.Store
	var auditStore audit.Store
	health := func(*http.Request) error { return nil }
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres pool failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := attendeestore.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("attendee schema migration failed", "error", err)
			os.Exit(1)
		}
		attStore = pgStore

		pgSuppliers := supplier.NewPostgresStore(pool)
		if err := pgSuppliers.EnsureSchema(ctx); err != nil {
			log.Error("supplier schema migration failed", "error", err)
			os.Exit(1)
		}
		supplierStore = pgSuppliers

		pgSectors := sector.NewPostgresStore(pool)
		if err := pgSectors.EnsureSchema(ctx); err != nil {
			log.Error("sector schema migration failed", "error", err)
			os.Exit(1)
		}
		sectorStore = pgSectors

		db, err := audit.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Error("audit store connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("audit schema migration failed", "error", err)
			os.Exit(1)
		}
		auditStore = pgAudit
		health = func(r *http.Request) error { return pool.Ping(r.Context()) }
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		attStore = attendeestore.NewInMemoryStore()
		supplierStore = supplier.NewInMemoryStore()
		sectorStore = sector.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	// Audit fan-out: store sink always, Kafka when brokers are configured.
	publishers := audit.Fanout{audit.NewStorePublisher(auditStore)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka publisher failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafka.Close(closeCtx)
		}()
		publishers = append(publishers, kafka)
	}

	// Cross-event CPF index, backing the global dedup policy.
	var index dedup.Index
	redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		index = dedup.NewRedisIndex(redisClient.Client)
	} else if cfg.CPFDedupPolicy == "global" {
		log.Warn("global dedup requested without redis, using in-memory index")
		index = dedup.NewInMemoryIndex()
	}

	attMetrics := metrics.New()

	issuer := supplier.NewTokenIssuer(cfg.SupplierTokenKey, 30*24*time.Hour)
	supplierSvc := supplier.New(supplierStore, issuer, supplier.WithLogger(log))

	attendeeSvc := attendeeservice.New(attStore, supplierStore,
		attendeeservice.WithLogger(log),
		attendeeservice.WithMetrics(attMetrics),
		attendeeservice.WithAuditor(publishers),
		attendeeservice.WithDedupIndex(index),
		attendeeservice.WithDedupPolicy(attendeeservice.DedupPolicy(cfg.CPFDedupPolicy)),
	)

	sectorSvc := sector.New(sectorStore, attStore, supplierStore, sector.WithLogger(log))

	scanOpts := []scan.Option{
		scan.WithLogger(log),
		scan.WithMetrics(attMetrics),
		scan.WithAuditor(publishers),
	}
	if cfg.FacematchURL != "" {
		scanOpts = append(scanOpts, scan.WithOracle(facematch.NewClient(cfg.FacematchURL)))
	}
	scanSvc := scan.New(attendeeSvc, attStore, sectorStore, scanOpts...)

	router := gatepasshttp.NewRouter(gatepasshttp.Deps{
		Attendees: attendeehandler.New(attendeeSvc, log),
		Suppliers: supplier.NewHandler(supplierSvc, log),
		Sectors:   sector.NewHandler(sectorSvc, log),
		Scans:     scan.NewHandler(scanSvc, log),
		Keys: actor.StaticKeys{
			Admin:      cfg.AdminKey,
			Staff:      cfg.StaffKey,
			Checkpoint: cfg.CheckpointKey,
		},
		Authenticator: supplierSvc,
		Health:        health,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("gatepass listening", "addr", cfg.Addr, "dedup_policy", cfg.CPFDedupPolicy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
