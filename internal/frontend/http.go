package frontend

import (
	"github.com/gofiber/fiber/v2"

	"github.com/neogan74/tribbler/internal/auth"
	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/middleware"
	"github.com/neogan74/tribbler/internal/ratelimit"
	"github.com/neogan74/tribbler/internal/trib"
)

// Server exposes a Frontend over HTTP.
type Server struct {
	front     *Frontend
	log       logger.Logger
	jwt       *auth.JWTService // nil disables auth
	rateLimit *ratelimit.Service
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithJWT enables bearer-token authentication on mutating endpoints.
func WithJWT(svc *auth.JWTService) ServerOption {
	return func(s *Server) { s.jwt = svc }
}

// WithRateLimit enables per-client rate limiting on mutating endpoints.
func WithRateLimit(svc *ratelimit.Service) ServerOption {
	return func(s *Server) { s.rateLimit = svc }
}

// NewServer builds a Server around front, logging through log.
func NewServer(front *Frontend, log logger.Logger, opts ...ServerOption) *Server {
	s := &Server{front: front, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the front-end's routes onto app.
func (s *Server) Register(app *fiber.App) {
	app.Use(middleware.RequestLogging(s.log))
	app.Use(middleware.MetricsMiddleware())

	app.Post("/u/:user", s.guarded(s.handleSignUp))
	app.Get("/u", s.handleListUsers)
	app.Post("/u/:user/tribs", s.guarded(s.handlePost))
	app.Get("/u/:user/tribs", s.handleTribs)
	app.Post("/u/:user/follow/:whom", s.guarded(s.handleFollow))
	app.Delete("/u/:user/follow/:whom", s.guarded(s.handleUnfollow))
	app.Get("/u/:user/follow/:whom", s.handleIsFollowing)
	app.Get("/u/:user/following", s.handleFollowing)
	app.Get("/u/:user/home", s.handleHome)
}

// guarded wraps h with rate limiting and, if enabled, JWT auth; applied
// only to endpoints that mutate state.
func (s *Server) guarded(h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.rateLimit != nil && !s.rateLimit.AllowIP(c.IP()) {
			return middleware.BadRequest(c, "rate limit exceeded")
		}
		if s.jwt != nil {
			token := bearerToken(c.Get("Authorization"))
			if _, err := s.jwt.ValidateToken(token); err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, err.Error())
			}
		}
		return h(c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func (s *Server) handleSignUp(c *fiber.Ctx) error {
	user := c.Params("user")
	if err := s.front.SignUp(c.Context(), user); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	users, err := s.front.ListUsers(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

type postRequest struct {
	Message   string `json:"message"`
	ClockHint uint64 `json:"clock_hint"`
}

func (s *Server) handlePost(c *fiber.Ctx) error {
	user := c.Params("user")
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.BadRequest(c, "invalid request body")
	}
	if err := s.front.Post(c.Context(), user, req.Message, req.ClockHint); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleTribs(c *fiber.Ctx) error {
	user := c.Params("user")
	tribs, err := s.front.Tribs(c.Context(), user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"tribs": tribs})
}

func (s *Server) handleFollow(c *fiber.Ctx) error {
	who, whom := c.Params("user"), c.Params("whom")
	if err := s.front.Follow(c.Context(), who, whom); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUnfollow(c *fiber.Ctx) error {
	who, whom := c.Params("user"), c.Params("whom")
	if err := s.front.Unfollow(c.Context(), who, whom); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleIsFollowing(c *fiber.Ctx) error {
	who, whom := c.Params("user"), c.Params("whom")
	ok, err := s.front.IsFollowing(c.Context(), who, whom)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"following": ok})
}

func (s *Server) handleFollowing(c *fiber.Ctx) error {
	user := c.Params("user")
	following, err := s.front.Following(c.Context(), user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

func (s *Server) handleHome(c *fiber.Ctx) error {
	user := c.Params("user")
	home, err := s.front.Home(c.Context(), user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"tribs": home})
}

var statusByKind = map[trib.Kind]int{
	trib.KindInvalidUsername:  fiber.StatusBadRequest,
	trib.KindUsernameTaken:    fiber.StatusConflict,
	trib.KindUserDoesNotExist: fiber.StatusNotFound,
	trib.KindWhoWhom:          fiber.StatusBadRequest,
	trib.KindAlreadyFollowing: fiber.StatusConflict,
	trib.KindNotFollowing:     fiber.StatusConflict,
	trib.KindFollowingTooMany: fiber.StatusConflict,
	trib.KindTribTooLong:      fiber.StatusBadRequest,
	trib.KindRPCError:         fiber.StatusBadGateway,
	trib.KindUnknown:          fiber.StatusInternalServerError,
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if te, ok := err.(*trib.Error); ok {
		if mapped, found := statusByKind[te.Kind]; found {
			status = mapped
		}
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
