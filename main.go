package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	intconfig "fleetops/internal/config"
	intdb "fleetops/internal/db"
	"fleetops/internal/events"
	router "fleetops/internal/http"
	"fleetops/internal/http/handlers"
	"fleetops/internal/storage"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	if env.SchemaBootstrap {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := intdb.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("Gagal menyiapkan schema: %v", err)
		}
		cancel()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if env.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(env.AMQPURL, env.AMQPExchange)
		if err != nil {
			log.Printf("warning: rabbitmq tidak tersedia, event dinonaktifkan: %v", err)
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
		}
	}

	var rdb redis.Cmdable
	if env.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
		defer client.Close()
		rdb = client
	}

	handlers.Configure(handlers.Deps{
		DB:        db,
		Events:    publisher,
		Files:     storage.NewLocalStore(env.UploadDir, env.UploadURLPrefix),
		JWTSecret: env.JWTSecret,
		JWTTTL:    env.JWTTTL,
	})

	r := router.NewRouter(env, rdb)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server berjalan di http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Gagal menjalankan server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Mematikan server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown server gagal: %v", err)
	}

	log.Println("Server berhenti dengan aman.")
}
