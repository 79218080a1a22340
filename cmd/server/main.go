package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dinehall/orderdesk/internal/auth"
	"github.com/dinehall/orderdesk/internal/menu"
	"github.com/dinehall/orderdesk/internal/orders"
	"github.com/dinehall/orderdesk/internal/store"
	"github.com/dinehall/orderdesk/internal/tables"
	ws "github.com/dinehall/orderdesk/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment")
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	dbName := getEnv("MONGO_DB", "orderdesk")
	jwtSecret := getEnv("JWT_SECRET", "")
	port := getEnv("PORT", "8080")

	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		logger.WithError(err).Fatal("MongoDB is not reachable")
	}
	cancel()
	logger.Info("MongoDB connection established")
	db := client.Database(dbName)

	// The hub is started before the HTTP server so the first mutation can
	// already publish; handlers receive it as an explicit dependency.
	hub := ws.NewHub(logger)
	go hub.Run()

	tokens := auth.NewTokenManager(jwtSecret)

	orderStore := store.NewOrderStore(db)
	menuStore := store.NewMenuStore(db)
	tableStore := store.NewTableStore(db)
	userStore := store.NewUserStore(db)

	orderService := orders.NewService(orderStore, menuStore, tableStore, hub, logger)

	orderHandler := orders.NewHandler(orderService, logger)
	menuHandler := menu.NewHandler(menuStore, logger)
	tableHandler := tables.NewHandler(tableStore, logger)
	authHandler := auth.NewHandler(userStore, tokens, logger)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/health", healthCheck(client)).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWebSocket)
	authHandler.Register(router)
	menuHandler.RegisterPublic(router)

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(auth.Middleware(tokens))
	orderHandler.Register(protected)
	menuHandler.RegisterProtected(protected)
	tableHandler.Register(protected)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting order service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	hub.Stop()
	if err := client.Disconnect(ctx); err != nil {
		logger.WithError(err).Error("Failed to disconnect MongoDB client")
	}

	logger.Info("Server gracefully stopped")
}

func healthCheck(client *mongo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := client.Ping(ctx, nil); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","error":"database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
