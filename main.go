package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edufees/config"
	"edufees/cron"
	"edufees/database"
	"edufees/database/repository"
	auditRepo "edufees/database/repository/audit"
	balanceRepo "edufees/database/repository/balance"
	counterRepo "edufees/database/repository/counter"
	directoryRepo "edufees/database/repository/directory"
	feeStructureRepo "edufees/database/repository/feestructure"
	invoiceRepo "edufees/database/repository/invoice"
	"edufees/database/repository/memory"
	paymentRepo "edufees/database/repository/payment"
	"edufees/handlers"
	"edufees/middleware"
	"edufees/routes"
	"edufees/services/audit"
	"edufees/services/balance"
	"edufees/services/feestructure"
	"edufees/services/gateway"
	"edufees/services/invoice"
	"edufees/services/notification"
	"edufees/services/numbering"
	"edufees/services/payment"
	"edufees/services/tasks"
	"edufees/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// stores is the repository set chosen by STORAGE.
type stores struct {
	counters   counterRepo.CounterRepository
	structures feeStructureRepo.FeeStructureRepository
	invoices   invoiceRepo.InvoiceRepository
	payments   paymentRepo.PaymentRepository
	balances   balanceRepo.BalanceRepository
	audit      auditRepo.AuditRepository
	directory  directoryRepo.Directory
	tx         repository.Transactor
	mongo      *mongo.Client
}

func openStores(logger *zap.Logger) stores {
	if config.AppConfig.Storage == "memory" {
		logger.Warn("using in-memory storage; data is lost on restart")
		m := memory.NewStore()
		return stores{
			counters:   m.Counters,
			structures: m.FeeStructures,
			invoices:   m.Invoices,
			payments:   m.Payments,
			balances:   m.Balances,
			audit:      m.Audit,
			directory:  m.Directory,
			tx:         m.Transactor(logger),
		}
	}

	database.InitDB()
	return stores{
		counters:   counterRepo.NewMongoCounterRepo(),
		structures: feeStructureRepo.NewMongoFeeStructureRepo(),
		invoices:   invoiceRepo.NewMongoInvoiceRepo(),
		payments:   paymentRepo.NewMongoPaymentRepo(),
		balances:   balanceRepo.NewMongoBalanceRepo(),
		audit:      auditRepo.NewMongoAuditRepo(),
		directory:  directoryRepo.NewMongoDirectory(),
		tx:         repository.NewMongoTransactor(database.MongoClient, config.AppConfig.MongoTransactions, logger),
		mongo:      database.MongoClient,
	}
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	st := openStores(logger)
	logger.Info("ledger write mode", zap.String("txMode", string(st.tx.Mode())))

	var (
		cacheClient  *redis.Client
		balanceCache balance.Cache = balance.NopCache{}
	)
	if st.mongo != nil {
		cacheClient = utils.GetCacheClient()
		balanceCache = balance.NewRedisCache(cacheClient, config.AppConfig.BalanceCacheTTL)
	}

	var verifier gateway.Verifier
	if config.AppConfig.StripeKey != "" {
		stripe.Key = config.AppConfig.StripeKey
		verifier = gateway.NewStripeVerifier()
	}

	var (
		publisher   tasks.ReceiptPublisher = tasks.NopReceiptPublisher{}
		queueClient *asynq.Client
	)
	if config.AppConfig.ReceiptQueueEnabled {
		queueClient = asynq.NewClient(utils.QueueRedisOpt())
		publisher = tasks.NewAsynqReceiptPublisher(queueClient)
	}

	// services.
	auditSvc := audit.NewDefaultAuditService(st.audit, logger)
	balanceSvc := balance.NewDefaultBalanceService(st.balances, st.invoices, balanceCache, auditSvc, logger)
	numberingSvc := numbering.NewDefaultNumberingService(st.counters, config.AppConfig.InvoicePrefix, config.AppConfig.ReceiptPrefix)
	structureSvc := feestructure.NewDefaultFeeStructureService(st.structures, auditSvc, logger)
	invoiceSvc := invoice.NewDefaultInvoiceService(st.invoices, st.structures, st.directory, numberingSvc, balanceSvc, auditSvc, logger)
	paymentSvc := payment.NewDefaultPaymentService(st.payments, invoiceSvc, st.directory, numberingSvc, balanceSvc, auditSvc, st.tx,
		payment.Options{
			Gateway:     verifier,
			Receipts:    publisher,
			AutoConfirm: config.AppConfig.PaymentAutoConfirm,
		}, logger)

	var worker *asynq.Server
	if config.AppConfig.ReceiptQueueEnabled {
		worker = cron.InitReceiptWorker(paymentSvc, notification.NewLogReceiptNotifier(logger), logger)
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	utils.StartHealthMonitor(monitorCtx, 30*time.Second, cacheClient, st.mongo, string(st.tx.Mode()))

	handlers.RegisterValidators()
	handlerBundle := &handlers.HandlerBundle{
		FeeStructures: handlers.NewFeeStructureHandler(structureSvc),
		Invoices:      handlers.NewInvoiceHandler(invoiceSvc),
		Payments:      handlers.NewPaymentHandler(paymentSvc),
		Balances:      handlers.NewBalanceHandler(balanceSvc),
		Audit:         handlers.NewAuditHandler(auditSvc),
		Health:        handlers.NewHealthHandler(),
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	if st.mongo != nil {
		_ = st.mongo.Disconnect(ctx)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
