package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/database"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/handler"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/service"
	"github.com/drawhub/drawhub/backend/go-services/internal/locks"
	"github.com/drawhub/drawhub/backend/go-services/internal/share"
	"github.com/drawhub/drawhub/backend/go-services/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/drawhub/drawhub/backend/go-services/pkg/middleware"
)

// Standalone diagram service for local development and integration tests.
// Identity comes from the X-Actor header instead of verified tokens, and
// every grantee id is accepted as known when no user store is configured.

type openDirectory struct{}

func (openDirectory) Exists(ctx context.Context, sub string) (bool, error) { return true, nil }

func main() {
	port := os.Getenv("DIAGRAM_SERVICE_PORT")
	if port == "" {
		port = "5020"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	var dRepo repository.Repository
	var sRepo share.Repository
	var directory share.GranteeDirectory = openDirectory{}

	// Mongo-backed stores when MONGODB_URI is provided, memory otherwise
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI != "" {
		client, err := database.ConnectMongo(context.Background(), mongoURI, 10*time.Second)
		if err != nil {
			log.Printf("warning: cannot connect to MongoDB (%v) — using memory-backed repos", err)
			dRepo = repository.NewMemoryRepo()
			sRepo = share.NewMemoryRepository()
		} else {
			db := client.Database(os.Getenv("MONGODB_DATABASE"))
			dRepo = repository.NewMongoRepo(db.Collection("diagrams"))
			sRepo = share.NewMongoRepository(db.Collection("shares"))
			directory = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
		}
	} else {
		dRepo = repository.NewMemoryRepo()
		sRepo = share.NewMemoryRepository()
	}

	eval := access.NewEvaluator(sRepo)
	locker := locks.NewKeyed(3 * time.Second)
	svc := service.New(dRepo, sRepo, eval, locker, nil)
	shareSvc := share.NewService(dRepo, sRepo, eval, directory)

	authed := r.Group("/", middleware.ActorFromHeader())
	handler.RegisterDiagramRoutes(authed, svc, shareSvc)

	log.Printf("diagram service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
