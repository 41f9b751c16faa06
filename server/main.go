package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/arjunmehta14/image-press/config"
	"github.com/arjunmehta14/image-press/database"
	"github.com/arjunmehta14/image-press/filestore"
	"github.com/arjunmehta14/image-press/handlers"
	"github.com/arjunmehta14/image-press/logging"
	middleware "github.com/arjunmehta14/image-press/middlewares"
	"github.com/arjunmehta14/image-press/routes"
	"github.com/arjunmehta14/image-press/utils"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	store, err := database.Open(cfg.DBFilePath)
	if err != nil {
		logger.Error("could not open database file", "path", cfg.DBFilePath, "error", err)
		os.Exit(1)
	}

	files := filestore.New(cfg.FilestorePath)
	if err := filestore.EnsureDir(cfg.FilestorePath); err != nil {
		logger.Error("could not create filestore root", "path", cfg.FilestorePath, "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opt)
	}

	userHandler := &handlers.UserHandler{
		Store:  store,
		Config: cfg,
	}
	imageHandler := &handlers.ImageHandler{
		Store:  store,
		Files:  files,
		Config: cfg,
	}
	compressionHandler := &handlers.CompressionHandler{
		Store:  store,
		Files:  files,
		Config: cfg,
	}

	authMw := &middleware.Auth{
		Store: store,
		Key:   []byte(cfg.AuthSecretKey),
	}

	mux := http.NewServeMux()

	routes.RegisterUserRoutes(mux, userHandler, authMw)
	routes.RegisterImageRoutes(mux, imageHandler, compressionHandler, authMw)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.FilestorePath))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "This route does not exist")
	})

	var handler http.Handler = mux
	if redisClient != nil {
		handler = middleware.GlobalRateLimiter(redisClient)(handler)
	}
	handler = middleware.CORS(cfg.CORSOrigin)(middleware.SetCommonHeaders(handler))

	logger.Info("server is running", "addr", "http://localhost:"+cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
