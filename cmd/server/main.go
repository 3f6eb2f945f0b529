package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/api"
	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/checkout"
	"storefront-be/internal/config"
	"storefront-be/internal/coupon"
	"storefront-be/internal/customer"
	"storefront-be/internal/db"
	"storefront-be/internal/events"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/otp"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/pricing"
	"storefront-be/internal/product"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

type app struct {
	router  *gin.Engine
	relay   *events.Relay
	limiter *middleware.RateLimiter
}

// newApp wires repositories, services and the HTTP router.
func newApp(cfg *config.Config, conn *sql.DB, rdb redis.Cmdable, publisher events.Publisher, reg *prometheus.Registry) *app {
	m := metrics.New(reg)
	tokens := auth.NewTokenManager(cfg.JWTSecret, tokenTTL)
	outbox := events.NewOutbox(conn)
	pricer := pricing.NewPricer(cfg.DeliveryCharge, cfg.FreeDeliveryAbove, coupon.DefaultRegistry())

	productRepo := product.NewRepository(conn)
	stockRepo := product.NewStockRepository()
	cartRepo := cart.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	paymentRepo := payment.NewRepository(conn, outbox)
	orderRepo := order.NewRepository(conn, stockRepo, paymentRepo, outbox)
	checkoutRepo := checkout.NewRepository(conn, orderRepo, paymentRepo, stockRepo, cartRepo, outbox)
	customerRepo := customer.NewRepository(conn)

	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	paymentSvc := payment.NewService(paymentRepo, gateway)
	otpSvc := otp.NewService(otp.NewRedisStore(rdb), otp.NewOutboxNotifier(conn, outbox), cfg.OTPTTL, m)

	h := &api.Handler{
		Customers: customer.NewService(customerRepo, otpSvc, tokens),
		Products:  product.NewService(productRepo),
		Carts:     cart.NewService(cartRepo, productRepo),
		Addresses: address.NewService(addressRepo),
		Payments:  paymentSvc,
		Orders:    order.NewService(orderRepo, productRepo, addressRepo, paymentRepo, pricer, m),
		Checkouts: checkout.NewService(checkoutRepo, productRepo, addressRepo, cartRepo, paymentRepo, gateway, pricer, m),
		Pricer:    pricer,

		CookieTTL:     tokenTTL,
		SecureCookies: cfg.AppEnv == "production",
	}

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	router := api.NewRouter(api.RouterConfig{
		Tokens:      tokens,
		Limiter:     limiter,
		Metrics:     m,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Webhooks:    webhook.NewWebhookHandler(paymentSvc),
	}, h)

	return &app{
		router:  router,
		relay:   events.NewRelay(outbox, publisher, m, cfg.RelayInterval),
		limiter: limiter,
	}
}

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database := db.InitDB(cfg)
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		log.Fatal("failed to create event publisher", zap.Error(err))
	}
	defer publisher.Close()

	a := newApp(cfg, database, rdb, publisher, prometheus.NewRegistry())

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.relay.Run(gctx)
	})

	g.Go(func() error {
		a.limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
