package server

import (
	"backend-heggeo/internal/auth"
	"backend-heggeo/internal/config"
	"backend-heggeo/internal/journey"
	"backend-heggeo/internal/location"
	"backend-heggeo/internal/marker"
	"backend-heggeo/internal/nominatim"
	"backend-heggeo/internal/osrm"
	"backend-heggeo/internal/share"
	"backend-heggeo/internal/sos"
	"backend-heggeo/internal/storage"
	"backend-heggeo/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Log     zerolog.Logger
	Stream  *stream.Hub
	Markers *marker.Registry
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log zerolog.Logger) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Log:    log,
		Stream: stream.NewHub(redisClient, log),
	}
	s.Markers = marker.NewRegistry(markerStore(redisClient), log,
		marker.WithExpiryHandler(func(owner string, m marker.Marker) {
			s.Stream.PublishEvent(owner, marker.EventExpired, m)
		}),
	)

	registerRoutes(s)
	return s
}

// Close stops marker timers and the event subscription. Persisted markers
// are restored on the next start.
func (s *Server) Close() {
	s.Markers.Close()
	if err := s.Stream.Close(); err != nil {
		s.Log.Warn().Err(err).Msg("close stream hub")
	}
}

func markerStore(redisClient *redis.Client) marker.Store {
	if redisClient == nil {
		return marker.NewMemoryStore()
	}
	return marker.NewRedisStore(redisClient)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)

	geocoder := nominatim.New(s.Cfg.NominatimURL, s.Cfg.ProviderUserAgent, s.Cfg.ProviderTimeout)
	router := osrm.New(s.Cfg.OSRMURL, s.Cfg.ProviderUserAgent, s.Cfg.ProviderTimeout)
	locations := location.NewService(s.Redis, s.Cfg.LocationTTL)
	shareSvc := share.NewService(geocoder, s.Cfg.AppLink, s.Log)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	location.RegisterRoutes(s.App.Group("/location"), locations, jwtMiddleware)
	marker.RegisterRoutes(s.App.Group("/markers"), &marker.Handlers{
		Registry:  s.Markers,
		Locations: locations,
		Photos:    storage.NewService(s.DB, s.Cfg.StorageBaseURL),
		Events:    s.Stream,
	}, jwtMiddleware)
	journey.RegisterRoutes(s.App.Group("/journeys"), journey.NewService(geocoder, router, s.Log))
	share.RegisterRoutes(s.App.Group("/share"), shareSvc, s.Markers, jwtMiddleware)
	sos.RegisterRoutes(s.App.Group("/sos"), sos.NewService(s.DB, shareSvc, s.Cfg.AppLink), locations, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, authSvc)
}
