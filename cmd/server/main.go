package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	ledgerhandler "cac/internal/ledger/handler"
	ledgermetrics "cac/internal/ledger/metrics"
	"cac/internal/ledger/ports"
	ledgerservice "cac/internal/ledger/service"
	ledgermemory "cac/internal/ledger/store/memory"
	ledgerpostgres "cac/internal/ledger/store/postgres"
	markethandler "cac/internal/market/handler"
	marketmetrics "cac/internal/market/metrics"
	marketservice "cac/internal/market/service"
	marketstore "cac/internal/market/store"
	marketmemory "cac/internal/market/store/memory"
	marketpostgres "cac/internal/market/store/postgres"
	paymenthandler "cac/internal/payment/handler"
	paymentservice "cac/internal/payment/service"
	paymentstore "cac/internal/payment/store"
	paymentmemory "cac/internal/payment/store/memory"
	paymentpostgres "cac/internal/payment/store/postgres"
	"cac/internal/platform/config"
	"cac/internal/platform/httpserver"
	"cac/internal/platform/logger"
	platformmetrics "cac/internal/platform/metrics"
	"cac/internal/platform/middleware"
	platformpostgres "cac/internal/platform/postgres"
	platformredis "cac/internal/platform/redis"
	registryhandler "cac/internal/registry/handler"
	registrymetrics "cac/internal/registry/metrics"
	"cac/internal/registry/models"
	registryservice "cac/internal/registry/service"
	registrystore "cac/internal/registry/store"
	registrymemory "cac/internal/registry/store/memory"
	registrypostgres "cac/internal/registry/store/postgres"
	"cac/internal/registry/store/rediscache"
	"cac/internal/roles"
	roleshandler "cac/internal/roles/handler"
	transporthttp "cac/internal/transport/http"
	"cac/pkg/domain"
	audit "cac/pkg/platform/audit"
	auditkafka "cac/pkg/platform/audit/kafka"
	"cac/pkg/platform/audit/publisher"
	auditmemory "cac/pkg/platform/audit/store/memory"
	auditpostgres "cac/pkg/platform/audit/store/postgres"
	auditworker "cac/pkg/platform/audit/worker"
)

// custodyTaxIDHash marks the custody profile as system-owned; no legal entity
// stands behind the escrow account.
const custodyTaxIDHash = domain.Hash32("0x" +
	"0000000000000000000000000000000000000000000000000000000000000001")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	adminAddr, err := domain.ParseAddress(cfg.AdminAddr)
	if err != nil {
		return fmt.Errorf("CAC_ADMIN_ADDR: %w", err)
	}
	operatorAddr, err := domain.ParseAddress(cfg.OperatorAddr)
	if err != nil {
		return fmt.Errorf("CAC_OPERATOR_ADDR: %w", err)
	}
	custodyAddr, err := domain.ParseAddress(cfg.CustodyAddr)
	if err != nil {
		return fmt.Errorf("CAC_CUSTODY_ADDR: %w", err)
	}

	var (
		db         *sql.DB
		profiles   registrystore.Store
		auditStore audit.Store
		engine     ports.Engine
		payments   paymentstore.Store
		listings   marketstore.Store
	)
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := platformpostgres.Apply(context.Background(), db); err != nil {
			return err
		}
		profiles = registrypostgres.New(db)
		auditStore = auditpostgres.New(db)
		engine = ledgerpostgres.New(db)
		payments = paymentpostgres.New(db)
		listings = marketpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		profiles = registrymemory.New()
		auditStore = auditmemory.NewInMemoryStore()
		engine = ledgermemory.New()
		payments = paymentmemory.New()
		listings = marketmemory.New()
		log.Info("using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		profiles = rediscache.New(profiles, redisClient.Client, cfg.ProfileCacheTTL, log)
		log.Info("profile cache enabled", "ttl", cfg.ProfileCacheTTL)
	}

	auditPublisher := publisher.NewPublisher(auditStore, publisher.WithLogger(log))
	defer auditPublisher.Close()

	platMetrics := platformmetrics.New()
	regMetrics := registrymetrics.New()
	ledMetrics := ledgermetrics.New()
	mktMetrics := marketmetrics.New()

	ctx := context.Background()

	roleStore := roles.NewInMemoryStore()
	if err := roleStore.Grant(ctx, adminAddr, roles.RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin role: %w", err)
	}
	if err := roleStore.Grant(ctx, operatorAddr, roles.RoleOperator); err != nil {
		return fmt.Errorf("bootstrap operator role: %w", err)
	}
	roleService, err := roles.New(roleStore,
		roles.WithLogger(log),
		roles.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	registryService, err := registryservice.New(profiles, operatorAddr,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(auditPublisher),
		registryservice.WithMetrics(regMetrics),
	)
	if err != nil {
		return err
	}

	// The custody account holds marketplace escrow, so every escrow movement
	// passes the ledger's compliance gate. Bootstrap it registered and
	// approved.
	if err := bootstrapCustody(ctx, profiles, custodyAddr); err != nil {
		return fmt.Errorf("bootstrap custody profile: %w", err)
	}

	ledgerService, err := ledgerservice.New(engine, registryService, roleService,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(auditPublisher),
		ledgerservice.WithAuditLog(auditStore),
		ledgerservice.WithMetrics(ledMetrics),
	)
	if err != nil {
		return err
	}

	paymentService, err := paymentservice.New(payments,
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	marketService, err := marketservice.New(listings, ledgerService, paymentService, registryService, custodyAddr,
		marketservice.WithLogger(log),
		marketservice.WithAuditPublisher(auditPublisher),
		marketservice.WithMetrics(mktMetrics),
	)
	if err != nil {
		return err
	}

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)
	router := transporthttp.NewRouter(log, platMetrics,
		registryhandler.New(registryService, log, validator),
		ledgerhandler.New(ledgerService, log, validator),
		paymenthandler.New(paymentService, log, validator),
		markethandler.New(marketService, log, validator),
		roleshandler.New(roleService, log, validator),
	)
	server := httpserver.New(cfg.Addr, router)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := auditkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()

		drain := auditworker.New(db, producer, log,
			auditworker.WithInterval(cfg.Kafka.PollInterval),
		)
		group.Go(func() error {
			log.Info("audit outbox worker started", "topic", cfg.Kafka.Topic)
			if err := drain.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func bootstrapCustody(ctx context.Context, profiles registrystore.Store, custody domain.Address) error {
	now := time.Now().UTC()
	profile, err := models.NewProfile(custody, custodyTaxIDHash, "", "Marketplace Custody", now)
	if err != nil {
		return err
	}
	profile.ApplyKycDecision(true, "", now)
	return profiles.Put(ctx, profile)
}
