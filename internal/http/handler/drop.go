package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"dropapi/internal/ingest"
	"dropapi/internal/service"
)

// UploadFile accepts one file from a multipart form (field name: file) and
// streams it into storage.
func UploadFile(svc service.DropService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.Upload(c.UserContext(), f, fh.Filename, fh.Header.Get("Content-Type"), c.IP())
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRateLimited):
				return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "too many uploads, slow down")
			case errors.Is(err, service.ErrNoFile):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			case errors.Is(err, ingest.ErrFileTooLarge), errors.Is(err, ingest.ErrRequestTooLarge):
				return writeError(c, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "file exceeds the size limit")
			case errors.Is(err, ingest.ErrFileTooSmall):
				return writeError(c, fiber.StatusBadRequest, "FILE_TOO_SMALL", "file is below the minimum size")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// DownloadFile resolves an id or short code and streams the payload back as
// an attachment.
func DownloadFile(svc service.DropService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, rc, err := svc.Download(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "file not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, rec.ContentType)
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(rec.Size, 10))
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.Filename))
		// fasthttp closes the stream when it implements io.Closer.
		return c.SendStream(rc, int(rec.Size))
	}
}

// HealthCheck reports service health, including the primary backend probe
// that can restore a degraded failover state.
func HealthCheck(svc service.DropService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(svc.Health(c.UserContext()))
	}
}

// LivenessProbe is a bare liveness check with no dependency probing.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
