package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/twmb/franz-go/pkg/kgo"

	audithandler "docvault/internal/audit/handler"
	auditmetrics "docvault/internal/audit/metrics"
	auditservice "docvault/internal/audit/service"
	auditstore "docvault/internal/audit/store"
	docstore "docvault/internal/document/store"
	gatehandler "docvault/internal/gate/handler"
	gatemetrics "docvault/internal/gate/metrics"
	gateservice "docvault/internal/gate/service"
	granthandler "docvault/internal/grant/handler"
	grantmetrics "docvault/internal/grant/metrics"
	grantservice "docvault/internal/grant/service"
	grantstore "docvault/internal/grant/store"
	"docvault/internal/identity"
	"docvault/internal/notify"
	notifymetrics "docvault/internal/notify/metrics"
	"docvault/internal/platform/config"
	"docvault/internal/platform/kafka"
	httpmetrics "docvault/internal/platform/metrics"
	"docvault/internal/platform/postgres"
	"docvault/internal/platform/redis"
	"docvault/internal/ratelimit"
	ratelimitmetrics "docvault/internal/ratelimit/metrics"
	ratelimitmw "docvault/internal/ratelimit/middleware"
	ratelimitservice "docvault/internal/ratelimit/service"
	ratelimitstore "docvault/internal/ratelimit/store"
	"docvault/internal/revocation/cache"
	revocationhandler "docvault/internal/revocation/handler"
	revocationmetrics "docvault/internal/revocation/metrics"
	revocationservice "docvault/internal/revocation/service"
	revocationstore "docvault/internal/revocation/store"
	httptransport "docvault/internal/transport/http"
	id "docvault/pkg/domain"
	platformstrings "docvault/pkg/platform/strings"
)

// app holds what run needs after wiring.
type app struct {
	router  http.Handler
	sweeper *grantservice.Sweeper
	storage string
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// stores is one backend's set of adapters.
type stores struct {
	documents   revocationservice.Documents
	audit       auditservice.Store
	grants      grantservice.Store
	revocations revocationservice.Store
	tx          revocationservice.Tx
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{storage: "memory"}
	health := map[string]httptransport.HealthCheck{}

	st := memoryStores(cfg)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				a.close()
				return nil, err
			}
		}
		st = postgresStores(db, cfg)
		a.storage = "postgres"
		health["postgres"] = db.PingContext
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		health["redis"] = redisClient.Health
	}
	revocationCache := buildCache(cfg, redisClient)
	notifier, err := buildNotifier(ctx, cfg, log, a)
	if err != nil {
		a.close()
		return nil, err
	}

	auditor, err := auditservice.New(st.audit,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditmetrics.New()),
		auditservice.WithFailureMode(cfg.Audit.FailureMode),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	// The gate answers CheckShareable for the grant registry and reads grants
	// back for share links, so it is built first and handed the registry after.
	revMetrics := revocationmetrics.New()
	lookup := revocationservice.NewLookup(st.revocations, revocationCache, log, revMetrics)
	gate, err := gateservice.New(st.documents, lookup, auditor,
		gateservice.WithLogger(log),
		gateservice.WithMetrics(gatemetrics.New()),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	grantMetrics := grantmetrics.New()
	grants, err := grantservice.New(st.grants, gate, auditor,
		grantservice.WithLogger(log),
		grantservice.WithMetrics(grantMetrics),
		grantservice.WithNotifier(notifier),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	gate.SetGrants(grants)

	revocations, err := revocationservice.New(st.revocations, st.documents, grants, auditor,
		revocationservice.WithLogger(log),
		revocationservice.WithMetrics(revMetrics),
		revocationservice.WithNotifier(notifier),
		revocationservice.WithCache(revocationCache),
		revocationservice.WithTx(st.tx),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.Grant.SweepEnabled() {
		tenants, err := parseTenants(cfg.Grant.SweepTenants)
		if err != nil {
			a.close()
			return nil, err
		}
		a.sweeper = grantservice.NewSweeper(st.grants, auditor, tenants, cfg.Grant.SweepBatch, log, grantMetrics)
	}

	grantHandler := granthandler.New(grants, log)
	gateHandler := gatehandler.New(gate, log)
	a.router = httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        httpmetrics.New(),
		Validator:      identity.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer),
		RequestTimeout: cfg.RequestTimeout,
		Health:         health,
		Staff: []httptransport.StaffRoutes{
			revocationhandler.New(revocations, log),
			grantHandler,
			gateHandler,
			audithandler.New(auditor, log),
		},
		Public:           []httptransport.PublicRoutes{grantHandler, gateHandler},
		PublicMiddleware: []func(http.Handler) http.Handler{buildShareLimiter(cfg, redisClient, log).ShareLinks},
	})
	return a, nil
}

func memoryStores(cfg *config.Config) stores {
	return stores{
		documents:   docstore.NewInMemory(),
		audit:       auditstore.NewInMemory(),
		grants:      grantstore.NewInMemory(),
		revocations: revocationstore.NewInMemory(),
		tx:          revocationservice.NewShardedTx(cfg.Database.TxTimeout),
	}
}

func postgresStores(db *sql.DB, cfg *config.Config) stores {
	return stores{
		documents:   docstore.NewPostgres(db),
		audit:       auditstore.NewPostgres(db),
		grants:      grantstore.NewPostgres(db),
		revocations: revocationstore.NewPostgres(db),
		tx:          newRevocationPostgresTx(db, cfg.Database.TxTimeout),
	}
}

// buildCache uses Redis when configured and an in-process cache otherwise.
func buildCache(cfg *config.Config, client *redis.Client) revocationservice.Cache {
	if client == nil {
		return cache.NewInMemory(cfg.Revocation.CacheTTL)
	}
	return cache.NewRedis(client.Client, cache.WithTTL(cfg.Revocation.CacheTTL))
}

// buildShareLimiter shares windows through Redis when available and falls
// back to a per-process window while Redis is failing.
func buildShareLimiter(cfg *config.Config, client *redis.Client, log *slog.Logger) *ratelimitmw.Middleware {
	var primary ratelimitservice.Store
	if client != nil {
		primary = ratelimitstore.NewRedis(client.Client)
	}
	limiter := ratelimitservice.New(primary, ratelimitstore.NewInMemory(),
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
	)
	limit := ratelimit.Limit{Requests: cfg.RateLimit.ShareRequests, Window: cfg.RateLimit.ShareWindow}
	return ratelimitmw.New(limiter, limit, log, ratelimitmw.WithDisabled(cfg.RateLimit.Disabled))
}

func buildNotifier(ctx context.Context, cfg *config.Config, log *slog.Logger, a *app) (notify.Notifier, error) {
	switch cfg.Notify.Mode {
	case config.NotifyNone:
		return notify.Nop{}, nil
	case config.NotifyKafka:
		client, err := kafka.NewProducer(cfg.Notify, kgo.ClientID("docvault"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if cfg.Notify.EnsureTopicOnBoot {
			if err := kafka.EnsureTopic(ctx, client, cfg.Notify.Topic, cfg.Notify.TopicPartitions, cfg.Notify.TopicReplication); err != nil {
				return nil, err
			}
		}
		return notify.NewKafka(client, cfg.Notify.Topic, log, notify.WithMetrics(notifymetrics.New())), nil
	default:
		return notify.NewLog(log), nil
	}
}

func parseTenants(raw []string) ([]id.TenantID, error) {
	raw = platformstrings.Compact(raw)
	tenants := make([]id.TenantID, 0, len(raw))
	for _, s := range raw {
		t, err := id.ParseTenantID(s)
		if err != nil {
			return nil, fmt.Errorf("config: grant sweep tenant %q: %w", s, err)
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}
