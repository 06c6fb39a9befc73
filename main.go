package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/handlers"
	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/archive"
	"github.com/drawhub/drawhub/backend/go-services/internal/config"
	"github.com/drawhub/drawhub/backend/go-services/internal/database"
	diagramhandler "github.com/drawhub/drawhub/backend/go-services/internal/diagram/handler"
	diagramrepo "github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	diagramservice "github.com/drawhub/drawhub/backend/go-services/internal/diagram/service"
	"github.com/drawhub/drawhub/backend/go-services/internal/locks"
	"github.com/drawhub/drawhub/backend/go-services/internal/oidc"
	"github.com/drawhub/drawhub/backend/go-services/internal/sessions"
	"github.com/drawhub/drawhub/backend/go-services/internal/share"
	"github.com/drawhub/drawhub/backend/go-services/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/drawhub/drawhub/backend/go-services/pkg/logger"
	"github.com/drawhub/drawhub/backend/go-services/pkg/metrics"
	"github.com/drawhub/drawhub/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test; production should use a
	// stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// shared runtime state used by handlers/readiness
	var verifier middleware.Verifier
	var userSvc *users.Service
	var sessionsSvc *sessions.Service
	var diagramSvc *diagramservice.Service

	// Connect to Redis early so the rate limiter, session store, token
	// blacklist and save locks can use it when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		}
	}

	// optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["diagrams"] = diagramSvc != nil
		if diagramSvc == nil {
			ready = false
		}
		deps["storage"] = sessionsSvc != nil
		if sessionsSvc == nil {
			ready = false
		}
		deps["users"] = userSvc != nil

		if cfg.Keycloak.URL != "" {
			deps["oidc"] = verifier != nil
			if verifier == nil {
				ready = false
			}
		} else {
			deps["oidc"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Keycloak OIDC verifier
	ctx := context.Background()
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" && cfg.Keycloak.Realm != "" {
		issuer := strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// prefer Redis-based sessions when available
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// MongoDB-backed services: users, sessions fallback, diagrams, shares
	if cfg.MongoDB.URI != "" {
		// retry with backoff to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)

			userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
			if sessionsSvc == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}

			// diagram store + share registry + access evaluation
			dRepo := diagramrepo.NewMongoRepo(db.Collection("diagrams"))
			sRepo := share.NewMongoRepository(db.Collection("shares"))
			eval := access.NewEvaluator(sRepo)

			// per-diagram save locks: Redis lease when available so multiple
			// instances serialize correctly, in-process otherwise
			var locker locks.Locker
			if redisClient != nil {
				locker = locks.NewRedisLease(redisClient, "lock:diagram:", cfg.Lock.AcquireTimeout, cfg.Lock.Lease)
			} else {
				locker = locks.NewKeyed(cfg.Lock.AcquireTimeout)
			}

			// optional MinIO snapshot archive for superseded payloads
			var snapshots *archive.Store
			if cfg.Archive.Endpoint != "" {
				snapshots, err = archive.New(&cfg.Archive)
				if err != nil {
					logger.Warnf("snapshot archive disabled: %v", err)
					snapshots = nil
				}
			}

			diagramSvc = diagramservice.New(dRepo, sRepo, eval, locker, snapshots)
			shareSvc := share.NewService(dRepo, sRepo, eval, userSvc)

			if verifier != nil {
				authed := r.Group("/", middleware.AuthMiddleware(verifier))
				diagramhandler.RegisterDiagramRoutes(authed, diagramSvc, shareSvc)
			} else {
				logger.Warnf("diagram routes not registered: no token verifier available")
			}
		}
	}

	// auth handlers when user + session services are available
	if userSvc != nil && sessionsSvc != nil {
		h := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc)
		h.Register(r.Group("/"))
	} else {
		logger.Warnf("auth handlers not registered because user/sessions services are unavailable")
	}

	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	if verifier != nil {
		api.GET("/me", middleware.AuthMiddleware(verifier), func(c *gin.Context) {
			claims, _ := c.Get("claims")
			if userSvc != nil {
				if cm, ok := claims.(map[string]interface{}); ok {
					u, err := userSvc.UpsertFromClaims(c.Request.Context(), cm)
					if err == nil && u != nil {
						c.JSON(http.StatusOK, gin.H{"user": u})
						return
					}
				}
			}
			c.JSON(http.StatusOK, gin.H{"claims": claims})
		})
	} else {
		api.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "OIDC not configured"})
		})
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting drawhub service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
