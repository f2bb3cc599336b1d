package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

const (
	checkOK       = "ok"
	checkDown     = "down"
	checkDisabled = "disabled"
)

// BrokerStatus reports whether the message broker connection is up.
type BrokerStatus interface {
	Connected() bool
}

// HealthDeps lists what readiness checks. Redis and Broker are optional.
type HealthDeps struct {
	DB      *sql.DB
	Redis   *redis.Client
	Broker  BrokerStatus
	Metrics http.Handler
}

func RegisterHealthRoutes(app fiber.Router, deps HealthDeps) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(deps))
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return transport.Respond(c, fiber.StatusOK, "alive", fiber.Map{"status": "ok"})
	}
}

func ReadyzHandler(deps HealthDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		ready := true

		pgStatus := checkDown
		if deps.DB != nil && deps.DB.PingContext(ctx) == nil {
			pgStatus = checkOK
		} else {
			ready = false
		}

		redisStatus := checkDisabled
		if deps.Redis != nil {
			redisStatus = checkOK
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = checkDown
				ready = false
			}
		}

		brokerStatus := checkDisabled
		if deps.Broker != nil {
			brokerStatus = checkOK
			if !deps.Broker.Connected() {
				brokerStatus = checkDown
				ready = false
			}
		}

		result := fiber.Map{
			"status": "ready",
			"checks": fiber.Map{
				"postgres": pgStatus,
				"redis":    redisStatus,
				"rabbitmq": brokerStatus,
			},
		}
		if !ready {
			result["status"] = "not_ready"
			return transport.Respond(c, fiber.StatusServiceUnavailable, "not ready", result)
		}
		return transport.Respond(c, fiber.StatusOK, "ready", result)
	}
}
