package startup

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"rental_service/authorization"
	"rental_service/cache"
	"rental_service/casbinAuthorization"
	"rental_service/domain"
	"rental_service/handlers"
	application "rental_service/service"
	"rental_service/startup/config"
	"rental_service/store"
	"rental_service/store/memstore"
)

type Server struct {
	config  *config.Config
	logger  *logrus.Logger
	closers []func()
}

func NewServer(config *config.Config, logger *logrus.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
	}
}

func (server *Server) Start() {
	defer server.close()

	tp, err := newTracerProvider(server.config.JaegerAddress)
	if err != nil {
		server.logger.Fatalf("failed to initialize exporter: %v", err)
	}
	server.onClose(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := tp.Tracer(serviceName)

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     10,
		},
	}

	var mongoClient *mongo.Client
	if server.config.StorageBackend == "mongo" || server.config.SessionBackend == "mongo" {
		mongoClient = server.initMongoClient(httpClient)
	}
	var redisClient *redis.Client
	if server.config.SessionBackend == "redis" || server.config.ImageCache {
		redisClient = server.initRedisClient()
	}

	userStore, homeStore := server.initStores(mongoClient, tracer)
	sessionStore := server.initSessionStore(mongoClient, redisClient, tracer)
	fileStore, imageCache := server.initFileStore(redisClient, tracer)

	cleaner := application.NewReferenceCleaner(userStore, server.config.CleanupAttempts, server.config.CleanupBackoff, server.logger)
	server.onClose(cleaner.Close)

	authService := application.NewAuthService(userStore, sessionStore, fileStore,
		application.NewBcryptHasher(server.config.BcryptCost), server.initMailer(), tracer, server.logger)
	homeService := application.NewHomeService(homeStore, userStore, fileStore, cleaner,
		server.config.RequireListingPhoto, tracer, server.logger)
	storeService := application.NewStoreService(homeStore, userStore, fileStore, tracer, server.logger)

	links, err := authorization.NewLinkSigner([]byte(server.config.RulesLinkSecret), server.config.RulesLinkTTL)
	if err != nil {
		server.logger.Fatalf("failed to create link signer: %v", err)
	}
	cookie := handlers.NewSessionCookie([]byte(server.config.SessionSecret), server.config.SecureCookies(), server.config.SessionTTL)

	router := mux.NewRouter()
	router.Use(handlers.ExtractTraceInfoMiddleware)
	router.Use(MiddlewareContentTypeSet)
	router.Use(handlers.LoggingMiddleware(server.logger))
	router.Use(handlers.SessionMiddleware(sessionStore, cookie, server.logger))
	router.Use(server.initCasbinMiddleware())

	router.HandleFunc("/health", health).Methods(http.MethodGet)
	handlers.NewAuthHandler(authService, cookie, tracer, server.logger).Init(router)
	handlers.NewHostHandler(homeService, storeService, tracer, server.logger).Init(router)
	handlers.NewStoreHandler(homeService, storeService, links, tracer, server.logger).Init(router)
	handlers.NewFileHandler(fileStore, imageCache, tracer, server.logger).Init(router)

	server.start(router)
}

func (server *Server) initMongoClient(httpClient *http.Client) *mongo.Client {
	client, err := store.GetClientWithHTTPConfig(server.config.MongoHost, server.config.MongoPort, httpClient)
	if err != nil {
		server.logger.Fatal(err)
	}
	server.onClose(func() {
		if err := client.Disconnect(context.Background()); err != nil {
			server.logger.Errorf("error disconnecting from MongoDB: %v", err)
		}
	})
	return client
}

func (server *Server) initRedisClient() *redis.Client {
	client, err := store.GetRedisClient(server.config.RedisHost, server.config.RedisPort)
	if err != nil {
		server.logger.Fatal(err)
	}
	server.onClose(func() { _ = client.Close() })
	return client
}

func (server *Server) initStores(client *mongo.Client, tracer trace.Tracer) (domain.UserStore, domain.HomeStore) {
	if server.config.StorageBackend == "memory" {
		server.logger.Warn("using in-memory user and home stores, data is lost on restart")
		return memstore.NewUserStore(), memstore.NewHomeStore()
	}
	users, err := store.NewUserMongoDBStore(client, server.config.MongoDB, tracer, server.logger)
	if err != nil {
		server.logger.Fatal(err)
	}
	return users, store.NewHomeMongoDBStore(client, server.config.MongoDB, tracer, server.logger)
}

func (server *Server) initSessionStore(mongoClient *mongo.Client, redisClient *redis.Client, tracer trace.Tracer) domain.SessionStore {
	switch server.config.SessionBackend {
	case "memory":
		return memstore.NewSessionStore(server.config.SessionTTL)
	case "mongo":
		sessions, err := store.NewSessionMongoDBStore(mongoClient, server.config.MongoDB, server.config.SessionTTL, tracer, server.logger)
		if err != nil {
			server.logger.Fatal(err)
		}
		return sessions
	}
	return store.NewSessionRedisStore(redisClient, server.config.SessionTTL, tracer, server.logger)
}

func (server *Server) initFileStore(redisClient *redis.Client, tracer trace.Tracer) (domain.FileStore, handlers.ImageCache) {
	var files domain.FileStore
	switch server.config.FileStorage {
	case "inline":
		return store.NewInlineFileStorage(), nil
	case "hdfs":
		hdfsStorage, err := store.NewHDFSFileStorage(server.config.HDFSURI, server.config.HDFSRoot, tracer, server.logger)
		if err != nil {
			server.logger.Fatal(err)
		}
		server.onClose(hdfsStorage.Close)
		files = hdfsStorage
	default:
		local, err := store.NewLocalFileStorage(server.config.UploadDir, tracer, server.logger)
		if err != nil {
			server.logger.Fatal(err)
		}
		files = local
	}

	if !server.config.ImageCache {
		return files, nil
	}
	imageCache := cache.NewImageCache(redisClient, server.config.ImageCacheTTL, tracer, server.logger)
	cached := cache.NewCachedFileStore(files, imageCache)
	return cached, cached
}

func (server *Server) initMailer() application.WelcomeMailer {
	if server.config.SMTPHost == "" {
		server.logger.Info("SMTP_HOST not set, welcome mails disabled")
		return nil
	}
	mailer := application.NewSMTPMailer(server.config.SMTPHost, server.config.SMTPPort,
		server.config.SMTPUser, server.config.SMTPPassword, server.config.SMTPFrom, server.logger)
	server.onClose(mailer.Wait)
	return mailer
}

func (server *Server) initCasbinMiddleware() mux.MiddlewareFunc {
	enforcer, err := casbinAuthorization.NewEnforcer(server.config.ModelPath, server.config.PolicyPath)
	if err != nil {
		server.logger.Fatal(err)
	}
	return casbinAuthorization.CasbinMiddleware(enforcer, handlers.RequestRole, server.logger)
}

func (server *Server) start(router *mux.Router) {
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{server.config.FrontendURL}),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "X-Requested-With"}),
		gorillaHandlers.AllowCredentials(),
	)
	recovery := gorillaHandlers.RecoveryHandler(gorillaHandlers.RecoveryLogger(server.logger))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", server.config.Port),
		Handler:      recovery(cors(router)),
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	wait := time.Second * 15
	go func() {
		server.logger.Infof("server listening on port %s", server.config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.logger.Fatal(err)
		}
	}()

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		server.logger.Errorf("error shutting down server: %v", err)
	}
	server.logger.Info("server gracefully stopped")
}

func (server *Server) onClose(fn func()) {
	server.closers = append(server.closers, fn)
}

// close runs the registered closers in reverse order.
func (server *Server) close() {
	for i := len(server.closers) - 1; i >= 0; i-- {
		server.closers[i]()
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func MiddlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, h *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.Header().Set("X-Content-Type-Options", "nosniff")
		rw.Header().Set("X-Frame-Options", "DENY")
		rw.Header().Set("Referrer-Policy", "no-referrer")
		rw.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")

		next.ServeHTTP(rw, h)
	})
}
