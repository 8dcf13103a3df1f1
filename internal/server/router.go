package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/nuget-dl/internal/registry"
	"github.com/any-hub/nuget-dl/internal/resolver"
)

// PackageResolver 抽象 resolver.Resolver，便于在测试中注入假实现。
type PackageResolver interface {
	Resolve(ctx context.Context, id registry.PackageIdentity, targetDir string) (*resolver.Artifact, error)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger      *logrus.Logger
	Resolver    PackageResolver
	PackagesDir string
	ListenPort  int
}

const contextKeyRequestID = "_nugetdl_request_id"

// NewApp builds a Fiber application with request-ID and recover middlewares
// and the package download route.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("package resolver is required")
	}
	if opts.PackagesDir == "" {
		return nil, errors.New("packages dir is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	h := &packageHandler{
		logger:   opts.Logger,
		resolver: opts.Resolver,
		dir:      opts.PackagesDir,
	}
	app.Get("/api/v2/package/:name/:version", h.Handle)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID 并写入响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
