package main

import (
	"os"
	"time"

	"artgen-app/config"
	"artgen-app/database"
	"artgen-app/internal/api/analytics"
	"artgen-app/internal/api/generate"
	routes "artgen-app/internal/app/http"
	"artgen-app/internal/domain/generation"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/domain/usage"
	"artgen-app/internal/infra/mediastore"
	"artgen-app/internal/infra/stability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	provider := stability.NewClient(config.STABILITY_API_KEY, config.STABILITY_API_URL, log)
	ledger := quota.NewLedger(database.DB, log)
	recorder := usage.NewRecorder(database.DB, log)

	var store generation.MediaStore
	if config.MINIO_ENDPOINT != "" {
		s, err := mediastore.NewStore(
			config.MINIO_ENDPOINT,
			config.MINIO_ACCESS_KEY,
			config.MINIO_SECRET_KEY,
			config.MINIO_BUCKET,
			config.MINIO_USE_SSL,
		)
		if err != nil {
			log.Fatalf("❌ Failed to connect to media store: %v", err)
		}
		store = s
		log.Infof("✅ Media store connected: %s/%s", config.MINIO_ENDPOINT, config.MINIO_BUCKET)
	} else {
		log.Warn("MINIO_ENDPOINT not set, generated media will be returned inline only")
	}

	orch := generation.NewOrchestrator(provider, ledger, recorder, store, log)

	genHandler := generate.NewHandler(orch)
	statsHandler := analytics.NewHandler(recorder)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, genHandler, statsHandler)

	r.Run(":" + config.PORT)
}
