package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/nuget-dl/internal/cache"
)

// RegisterPackageRoutes 暴露 /-/packages 诊断接口，列出 PackagesDir 中的制品。
// 这里只读取磁盘，不做摘要校验，也不会访问注册中心。
func RegisterPackageRoutes(app *fiber.App, store cache.Store, dir string) {
	if app == nil || store == nil || dir == "" {
		return
	}

	app.Get("/-/packages", func(c fiber.Ctx) error {
		entries, err := store.List(c.UserContext(), dir)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
		}
		payload := make([]packagePayload, 0, len(entries))
		var total int64
		for _, entry := range entries {
			payload = append(payload, encodeEntry(entry))
			total += entry.SizeBytes
		}
		return c.JSON(fiber.Map{
			"packages_dir": dir,
			"count":        len(payload),
			"total_bytes":  total,
			"packages":     payload,
		})
	})

	app.Get("/-/packages/:name/:version", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		version := strings.TrimSpace(c.Params("version"))
		entry, err := store.Stat(c.UserContext(), cache.Locator{Dir: dir, Name: name, Version: version})
		switch {
		case err == nil:
			return c.JSON(encodeEntry(*entry))
		case errors.Is(err, cache.ErrInvalidIdentity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_identity"})
		case errors.Is(err, cache.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "package_not_cached"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stat_failed"})
		}
	})
}

type packagePayload struct {
	Name      string    `json:"name,omitempty"`
	Version   string    `json:"version,omitempty"`
	FileName  string    `json:"file_name"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

func encodeEntry(entry cache.Entry) packagePayload {
	return packagePayload{
		Name:      entry.Locator.Name,
		Version:   entry.Locator.Version,
		FileName:  entry.FileName,
		SizeBytes: entry.SizeBytes,
		ModTime:   entry.ModTime,
	}
}
