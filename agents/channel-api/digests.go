package channelapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"channel-insights/shared/storage"
)

func (s *Server) getLatestDigest(c *fiber.Ctx) error {
	channelID := c.Params("channelId")

	report, err := s.reports.Latest(channelID)
	if err != nil {
		return digestError(c, err, channelID)
	}
	return c.JSON(report)
}

func (s *Server) listDigests(c *fiber.Ctx) error {
	return c.JSON(s.reports.List(c.Params("channelId")))
}

func (s *Server) getDigest(c *fiber.Ctx) error {
	id := c.Params("digestId")

	report, err := s.reports.Get(id)
	if err != nil {
		return digestError(c, err, id)
	}
	return c.JSON(report)
}

func digestError(c *fiber.Ctx, err error, key string) error {
	if errors.Is(err, storage.ErrReportNotFound) {
		return detail(c, fiber.StatusNotFound, "Digest not found")
	}
	log.Error().Err(err).Str("key", key).Msg("Failed to read digest")
	return detail(c, fiber.StatusInternalServerError, "Failed to read digest")
}
