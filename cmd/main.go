package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/auth"
	"github.com/swiftship/delivery-tracking/internal/broadcast"
	"github.com/swiftship/delivery-tracking/internal/db"
	"github.com/swiftship/delivery-tracking/internal/geo"
	"github.com/swiftship/delivery-tracking/internal/handlers"
	"github.com/swiftship/delivery-tracking/internal/middleware"
	"github.com/swiftship/delivery-tracking/internal/mqtt"
	"github.com/swiftship/delivery-tracking/internal/tracking"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	log.Info("Connected to MongoDB")

	database := client.Database("delivery_tracking")
	deliveries := &db.MongoDeliveryCollection{Collection: database.Collection("deliveries")}
	drivers := &db.MongoDriverCollection{Collection: database.Collection("drivers")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	hub := broadcast.NewHub()
	go hub.Run()
	defer hub.Stop()

	service := tracking.NewService(deliveries, drivers, hub, tracking.PlanarEstimator{}, geo.NewLinearRouter())

	if brokerURL := os.Getenv("MQTT_BROKER_URL"); brokerURL != "" {
		bridge, err := mqtt.NewBridge(brokerURL, service)
		if err != nil {
			log.WithError(err).Error("MQTT bridge unavailable, driver locations arrive via REST only")
		} else {
			defer bridge.Close()
		}
	}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	deliveryHandler := handlers.NewDeliveryHandler(service)
	driverHandler := handlers.NewDriverHandler(service)
	wsHandler := handlers.NewWSHandler(hub)
	authHandler := handlers.NewAuthHandler(authService, users)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authHandler.UpdateProfile)

	mux.HandleFunc("GET /api/deliveries", deliveryHandler.List)
	mux.HandleFunc("POST /api/deliveries", deliveryHandler.Create)
	mux.HandleFunc("GET /api/deliveries/{id}", deliveryHandler.Get)
	mux.HandleFunc("PUT /api/deliveries/{id}", deliveryHandler.Update)
	mux.HandleFunc("DELETE /api/deliveries/{id}", deliveryHandler.Delete)
	mux.HandleFunc("POST /api/deliveries/{id}/status", deliveryHandler.SetStatus)
	mux.HandleFunc("POST /api/deliveries/{id}/checkpoints", deliveryHandler.SetCheckpoints)
	mux.HandleFunc("PUT /api/deliveries/{id}/checkpoints/{cpId}", deliveryHandler.UpdateCheckpoint)
	mux.HandleFunc("GET /api/deliveries/{id}/remaining-time", deliveryHandler.RemainingTime)

	mux.HandleFunc("POST /api/drivers", driverHandler.Create)
	mux.HandleFunc("GET /api/drivers", driverHandler.List)
	mux.HandleFunc("GET /api/drivers/{id}", driverHandler.Get)
	mux.HandleFunc("POST /api/drivers/{id}/location", driverHandler.UpdateLocation)
	mux.HandleFunc("POST /api/drivers/{id}/emergency", driverHandler.Emergency)

	mux.HandleFunc("GET /ws", wsHandler.Serve)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()
	handler := rateLimiter.RateLimit(300, 60)(authMiddleware.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
