package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sapliy/pushbridge/internal/classify"
	"github.com/sapliy/pushbridge/internal/config"
	"github.com/sapliy/pushbridge/internal/dispatch"
	"github.com/sapliy/pushbridge/internal/profile"
	"github.com/sapliy/pushbridge/internal/push"
	"github.com/sapliy/pushbridge/internal/webhook"
	"github.com/sapliy/pushbridge/pkg/database"
	"github.com/sapliy/pushbridge/pkg/messaging"
	"github.com/sapliy/pushbridge/pkg/observability"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed, name cache disabled: %v", err)
		rdb = nil
	}

	creds, err := push.LoadCredentials(ctx, push.CredentialSource{
		SecretID: cfg.FirebaseCredentialsSecret,
		Base64:   cfg.FirebaseCredentialsBase64,
		Path:     cfg.FirebaseCredentialsPath,
	})
	if err != nil {
		log.Fatalf("Failed to load Firebase credentials: %v", err)
	}

	fcm, err := push.NewClient(ctx, creds)
	if err != nil {
		log.Fatalf("Failed to initialize FCM client: %v", err)
	}
	log.Println("Firebase Admin SDK initialized")

	var outcomes webhook.OutcomeSink
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewKafkaProducer(cfg.KafkaBrokers, cfg.OutcomeTopic)
		defer producer.Close()
		outcomes = producer
	}

	shutdown, err := observability.InitTracer(ctx, observability.Config{
		ServiceName:    "pushbridge",
		ServiceVersion: "0.1.0",
		Endpoint:       cfg.OTELEndpoint,
		Environment:    "production",
	})
	if err != nil {
		log.Printf("Failed to init tracer: %v", err)
	} else {
		defer shutdown(context.Background())
	}

	store := profile.NewCached(profile.NewStore(db), rdb, 10*time.Minute)
	classifier := classify.New(store)
	dispatcher := dispatch.New(store, fcm)
	logger := observability.NewLogger("pushbridge")

	server := webhook.NewServer(classifier, dispatcher, outcomes, logger)

	log.Printf("Webhook service starting on %s", cfg.ListenAddr)

	otelHandler := otelhttp.NewHandler(server.Routes(), "webhook-request")
	if err := http.ListenAndServe(cfg.ListenAddr, otelHandler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
