// Package status serves a small HTTP endpoint for health checks and
// pending record counts.
package status

import (
	"sort"

	"backoffice/internal/approval"
	"backoffice/internal/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Counter reports record counts per kind
type Counter interface {
	Counts() (map[domain.RecordKind]approval.Count, error)
}

// Runner executes fn next to the update handlers
type Runner interface {
	Do(name string, fn func() error) error
}

// KindStats is one entry of the /stats response
type KindStats struct {
	Kind    domain.RecordKind `json:"kind"`
	Pending int               `json:"pending"`
	Total   int               `json:"total"`
}

// Server is the status HTTP server
type Server struct {
	app     *fiber.App
	counter Counter
	runner  Runner
	logger  *zap.Logger
}

// NewServer creates the status server and its routes
func NewServer(counter Counter, runner Runner, logger *zap.Logger) *Server {
	s := &Server{
		app:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		counter: counter,
		runner:  runner,
		logger:  logger,
	}
	s.app.Get("/healthz", s.health)
	s.app.Get("/stats", s.stats)
	return s
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("Running status server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) stats(c *fiber.Ctx) error {
	var counts map[domain.RecordKind]approval.Count
	err := s.runner.Do("stats", func() error {
		var err error
		counts, err = s.counter.Counts()
		return err
	})
	if err != nil {
		s.logger.Error("Error counting records", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "counts unavailable",
		})
	}

	out := make([]KindStats, 0, len(counts))
	for kind, n := range counts {
		out = append(out, KindStats{Kind: kind, Pending: n.Pending, Total: n.Total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })

	return c.Status(fiber.StatusOK).JSON(out)
}
