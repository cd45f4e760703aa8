package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"cinestack/api"
	"cinestack/config"
	"cinestack/handlers"
	"cinestack/internal/database"
	"cinestack/services/accounts"
	"cinestack/services/catalog"
	"cinestack/services/library"
	"cinestack/services/mailer"
	"cinestack/services/metadata"
	"cinestack/services/progress"
	"cinestack/services/sessions"
	"cinestack/services/social"
	"cinestack/utils"
)

func main() {
	cfg := config.FromEnv()
	setupLogging(cfg.Log)

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		log.Fatalf("[main] open database: %v", err)
	}
	defer db.Close()

	conn := db.Connection()

	// Repositories
	users := database.NewUserRepository(conn)
	sessionRepo := database.NewSessionRepository(conn)
	movies := database.NewMovieRepository(conn)
	episodes := database.NewEpisodeRepository(conn)
	favorites := database.NewFavoriteRepository(conn)
	reviews := database.NewReviewRepository(conn)

	// Services
	metadataClient := metadata.NewClient(cfg.TMDB, afero.NewOsFs())
	catalogSvc := catalog.NewService(movies, metadataClient)
	librarySvc := library.NewService(conn)
	progressSvc := progress.NewService(episodes, movies)
	socialSvc := social.NewService(favorites, reviews, movies)
	sessionsSvc := sessions.NewService(sessionRepo, cfg.Auth.SessionDuration)
	mailSvc := mailer.New(cfg.SMTP)
	accountsSvc := accounts.NewService(users, librarySvc, mailSvc, cfg.Auth.CodeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionsSvc.StartCleanupLoop(ctx)

	// Handlers
	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc)
	metadataHandler := handlers.NewMetadataHandler(metadataClient)
	moviesHandler := handlers.NewMoviesHandler(catalogSvc, librarySvc)
	playlistsHandler := handlers.NewPlaylistsHandler(librarySvc)
	socialHandler := handlers.NewSocialHandler(socialSvc)
	episodesHandler := handlers.NewEpisodesHandler(progressSvc)

	router := utils.NewRouter(utils.NewOriginPolicy(cfg.Server.AllowedOrigins))

	// Credential endpoints get per-IP rate limiting: 5 per minute.
	loginLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)

	// Public auth routes
	router.HandleFunc("/api/auth/register", api.RateLimitHandlerFunc(loginLimiter, authHandler.Register)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/login", api.RateLimitHandlerFunc(loginLimiter, authHandler.Login)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/password_reset/request", api.RateLimitHandlerFunc(loginLimiter, authHandler.RequestPasswordReset)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/password_reset/verify", authHandler.VerifyResetCode).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/password_reset/confirm", authHandler.ConfirmPasswordReset).Methods(http.MethodPost, http.MethodOptions)

	// Metadata proxy. These serve cached TMDB data and carry no user
	// state, so they stay outside the auth middleware.
	router.HandleFunc("/api/tmdb/search", metadataHandler.Search).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tmdb/popular", metadataHandler.Popular).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tmdb/top_rated", metadataHandler.TopRated).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tmdb/discover", metadataHandler.Discover).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tmdb/cache/clear", metadataHandler.ClearCache).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/tmdb/tv/{tmdbID:[0-9]+}/season/{season:[0-9]+}", metadataHandler.Season).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/tmdb/{type:movie|tv}/{tmdbID:[0-9]+}", metadataHandler.Details).Methods(http.MethodGet, http.MethodOptions)

	// Authenticated routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(api.AuthMiddleware(sessionsSvc))

	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/auth/password_change/request", authHandler.RequestPasswordChange).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/auth/password_change", authHandler.ChangePassword).Methods(http.MethodPost, http.MethodOptions)

	// Local title catalog
	protected.HandleFunc("/movies", moviesHandler.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/movies", moviesHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/movies/get_or_create", moviesHandler.GetOrCreate).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/movies/{id:[0-9]+}", moviesHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/movies/{id:[0-9]+}", moviesHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/movies/{id:[0-9]+}", moviesHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/movies/{id:[0-9]+}/status", moviesHandler.SetStatus).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/movies/{id:[0-9]+}/reviews", socialHandler.ListMovieReviews).Methods(http.MethodGet, http.MethodOptions)

	// Playlists
	protected.HandleFunc("/playlists", playlistsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/playlists", playlistsHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/playlists/{id:[0-9]+}", playlistsHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/playlists/{id:[0-9]+}", playlistsHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/playlists/{id:[0-9]+}", playlistsHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/playlists/{id:[0-9]+}/items", playlistsHandler.Items).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/playlists/{id:[0-9]+}/add_movie", playlistsHandler.AddMovie).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/playlists/{id:[0-9]+}/remove_movie/{movieID:[0-9]+}", playlistsHandler.RemoveMovie).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/playlists/{id:[0-9]+}/update_item_status/{movieID:[0-9]+}", playlistsHandler.UpdateItemStatus).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/playlists/{id:[0-9]+}/rate/{movieID:[0-9]+}", playlistsHandler.RateMovie).Methods(http.MethodPut, http.MethodOptions)

	// Favorites and reviews
	protected.HandleFunc("/favorites", socialHandler.ListFavorites).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/favorites", socialHandler.AddFavorite).Methods(http.MethodPost)
	protected.HandleFunc("/favorites/{movieID:[0-9]+}", socialHandler.RemoveFavorite).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/reviews", socialHandler.ListReviews).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/reviews", socialHandler.UpsertReview).Methods(http.MethodPost)
	protected.HandleFunc("/reviews/{movieID:[0-9]+}", socialHandler.DeleteReview).Methods(http.MethodDelete, http.MethodOptions)

	// Episode progress
	protected.HandleFunc("/episodes/progress", episodesHandler.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/episodes/progress", episodesHandler.Upsert).Methods(http.MethodPost)
	protected.HandleFunc("/episodes/progress/{id:[0-9]+}", episodesHandler.Delete).Methods(http.MethodDelete, http.MethodOptions)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[main] listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}

// setupLogging routes the standard logger through a rotating file when a
// log path is configured, mirroring to stderr.
func setupLogging(cfg config.LogConfig) {
	if cfg.Path == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}
