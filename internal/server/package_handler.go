package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/nuget-dl/internal/cache"
	"github.com/any-hub/nuget-dl/internal/logging"
	"github.com/any-hub/nuget-dl/internal/registry"
)

// CacheHitHeader 标记响应是否直接来自已校验的本地制品。
const CacheHitHeader = "X-Nuget-Dl-Cache-Hit"

type packageHandler struct {
	logger   *logrus.Logger
	resolver PackageResolver
	dir      string
}

// Handle 通过 Resolver 取得制品后整体回写，错误统一转成 JSON。
func (h *packageHandler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := RequestID(c)
	id := registry.PackageIdentity{Name: c.Params("name"), Version: c.Params("version")}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	artifact, err := h.resolver.Resolve(ctx, id, h.dir)
	if err != nil {
		status, code := classifyError(err)
		h.logResult(c, id, requestID, status, false, started, err)
		return c.Status(status).JSON(fiber.Map{"error": code})
	}
	defer artifact.File.Close()

	if _, err := artifact.File.Seek(0, io.SeekStart); err != nil {
		h.logResult(c, id, requestID, fiber.StatusInternalServerError, artifact.CacheHit, started, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "artifact_unreadable"})
	}

	if info, err := artifact.File.Stat(); err == nil {
		c.Response().Header.SetContentLength(int(info.Size()))
	}
	c.Set("Content-Type", "application/octet-stream")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cache.FileName(id.Name, id.Version)))
	c.Set(CacheHitHeader, strconv.FormatBool(artifact.CacheHit))
	c.Status(fiber.StatusOK)

	if c.Method() == http.MethodHead {
		h.logResult(c, id, requestID, fiber.StatusOK, artifact.CacheHit, started, nil)
		return nil
	}

	_, err = io.Copy(c.Response().BodyWriter(), artifact.File)
	h.logResult(c, id, requestID, fiber.StatusOK, artifact.CacheHit, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("read artifact failed: %v", err))
	}
	return nil
}

// classifyError 把解析错误映射为 HTTP 状态与错误码。
func classifyError(err error) (int, string) {
	var statusErr *registry.StatusError
	switch {
	case errors.Is(err, cache.ErrInvalidIdentity):
		return fiber.StatusBadRequest, "invalid_identity"
	case registry.IsNotFound(err):
		return fiber.StatusNotFound, "package_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "upstream_timeout"
	case errors.As(err, &statusErr):
		return fiber.StatusBadGateway, "upstream_status"
	default:
		return fiber.StatusBadGateway, "upstream_failed"
	}
}

func (h *packageHandler) logResult(
	c fiber.Ctx,
	id registry.PackageIdentity,
	requestID string,
	status int,
	cacheHit bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(requestID, c.Method(), string(c.Request().URI().Path()), status, cacheHit)
	fields["action"] = "serve_package"
	fields["package"] = id.Name
	fields["version"] = id.Version
	fields["elapsed_ms"] = time.Since(started).Milliseconds()

	if err != nil {
		h.logger.WithFields(fields).WithError(err).Warn("package request failed")
		return
	}
	h.logger.WithFields(fields).Info("package served")
}
