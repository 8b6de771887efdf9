package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bookwormhq/bookworm-go-server/internal/api"
	"github.com/bookwormhq/bookworm-go-server/internal/auth"
	"github.com/bookwormhq/bookworm-go-server/internal/db"
	"github.com/bookwormhq/bookworm-go-server/internal/googlebooks"
	"github.com/bookwormhq/bookworm-go-server/internal/httpclient"
	"github.com/bookwormhq/bookworm-go-server/internal/mail"
	"github.com/bookwormhq/bookworm-go-server/internal/openlibrary"
	"github.com/bookwormhq/bookworm-go-server/internal/progress"
	"github.com/bookwormhq/bookworm-go-server/internal/templates"
)

func main() {
	// Initialize Auth
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	auth.Init(jwtSecret)

	// Initialize Database
	dsn := os.Getenv("DB_PATH")
	if dsn == "" {
		dsn = "data/bookworm.db"
	}
	database, err := db.New(dsn)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize Services
	mailer := mail.NewSenderFromEnv()
	templatesMgr := templates.NewManager("templates")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	outbound := httpclient.New()
	openLibrary := openlibrary.NewClient(os.Getenv("OPENLIBRARY_URL"), outbound)
	googleBooks := googlebooks.NewClient(os.Getenv("GOOGLEBOOKS_URL"), outbound)

	earnCents := int64(100)
	if v := os.Getenv("EARN_CENTS_PER_CHAPTER"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			log.Fatalf("Invalid EARN_CENTS_PER_CHAPTER: %q", v)
		}
		earnCents = parsed
	}

	// The refresh signal connects the reading tracker's mutations to the
	// reward summary cache.
	refreshSignal := progress.NewSignal()

	// Initialize Handlers
	authHandler := &api.AuthHandler{
		DB:        database,
		Mailer:    mailer,
		Templates: templatesMgr,
		BaseURL:   baseURL,
	}
	userHandler := &api.UserHandler{DB: database}
	bookHandler := &api.BookHandler{DB: database, OpenLibrary: openLibrary, GoogleBooks: googleBooks}
	readingHandler := &api.ReadingHandler{DB: database, Signal: refreshSignal, EarnCents: earnCents}
	rewardsHandler := api.NewRewardsHandler(database, refreshSignal)
	parentHandler := &api.ParentHandler{DB: database}

	mw := &api.Middleware{DB: database}

	// Router
	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /", api.Health)
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("GET /api/auth/verify", authHandler.Verify)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Protected Routes
	protected := func(h http.HandlerFunc) http.Handler { return mw.Auth(h) }

	mux.Handle("GET /api/me", protected(userHandler.GetMe))

	mux.Handle("GET /api/search", protected(bookHandler.Search))
	mux.Handle("GET /api/search/volumes", protected(bookHandler.SearchVolumes))
	mux.Handle("GET /api/lookup", protected(bookHandler.Lookup))
	mux.Handle("GET /api/work/{olid}", protected(bookHandler.GetWork))

	mux.Handle("GET /api/books", protected(bookHandler.ListBooks))
	mux.Handle("POST /api/books", protected(bookHandler.SaveBook))
	mux.Handle("POST /api/books/{olid}/reread", protected(bookHandler.Reread))
	mux.Handle("GET /api/books/{olid}/chapters", protected(bookHandler.ListChapters))
	mux.Handle("POST /api/books/{olid}/chapters", protected(bookHandler.SaveChapters))
	mux.Handle("PUT /api/chapters/{id}", protected(bookHandler.RenameChapter))

	mux.Handle("GET /api/bookreads/in-progress", protected(readingHandler.ListInProgress))
	mux.Handle("GET /api/bookreads/{id}/chapterreads", protected(readingHandler.ListChapterReads))
	mux.Handle("POST /api/bookreads/{id}/chapters/{chapterID}/read", protected(readingHandler.MarkChapterRead))
	mux.Handle("DELETE /api/bookreads/{id}/chapters/{chapterID}/read", protected(readingHandler.UndoChapterRead))
	mux.Handle("POST /api/bookreads/{id}/finish", protected(readingHandler.FinishSession))
	mux.Handle("GET /api/history", protected(readingHandler.History))

	mux.Handle("GET /api/rewards", protected(rewardsHandler.ListRewards))
	mux.Handle("GET /api/rewards/summary", protected(rewardsHandler.Summary))
	mux.Handle("GET /api/credits", protected(rewardsHandler.Credits))
	mux.Handle("POST /api/rewards/spend", protected(rewardsHandler.Spend))
	mux.Handle("POST /api/rewards/payout", mw.RequireParent(http.HandlerFunc(rewardsHandler.Payout)))

	// Parent Routes
	mux.Handle("GET /api/parent/kids", mw.RequireParent(http.HandlerFunc(parentHandler.ListKids)))
	mux.Handle("POST /api/parent/kids", mw.RequireParent(http.HandlerFunc(parentHandler.AddKid)))
	mux.Handle("POST /api/parent/reset-child-password", mw.RequireParent(http.HandlerFunc(parentHandler.ResetChildPassword)))
	mux.Handle("GET /api/parent/kids/{id}/summary", mw.RequireParent(http.HandlerFunc(parentHandler.KidSummary)))

	// Start Server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s...", port)
	if err := http.ListenAndServe(":"+port, api.LoggingMiddleware(mux)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
