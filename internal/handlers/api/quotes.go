package api

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"hitokoto/internal/db"
	"hitokoto/internal/models"
	"hitokoto/internal/validation"
)

// Sampler is the sampling surface the quote handlers serve.
type Sampler interface {
	Sample(ctx context.Context, f db.Filter) (*models.Quote, error)
	SampleByIdentifier(ctx context.Context, id string) (*models.Quote, error)
}

// QuoteHandler serves random quotes.
type QuoteHandler struct {
	sampler Sampler
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(sampler Sampler) *QuoteHandler {
	return &QuoteHandler{sampler: sampler}
}

// Random returns one quote drawn uniformly from those matching the c,
// min_length and max_length query parameters.
func (h *QuoteHandler) Random(c fiber.Ctx) error {
	var categories []string
	for _, v := range c.Request().URI().QueryArgs().PeekMulti("c") {
		categories = append(categories, string(v))
	}

	filter, valid, msg := validation.ParseFilter(categories, c.Query("min_length"), c.Query("max_length"))
	if !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	quote, err := h.sampler.Sample(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return sendQuote(c, quote)
}

// ByUUID returns the quote with the given identifier.
func (h *QuoteHandler) ByUUID(c fiber.Ctx) error {
	id := c.Params("uuid")
	if !validation.ValidateUUID(id) {
		return jsonError(c, fiber.StatusBadRequest, "invalid uuid")
	}

	quote, err := h.sampler.SampleByIdentifier(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return sendQuote(c, quote)
}

// sendQuote writes quote as JSON, or as its bare text when encode=text.
func sendQuote(c fiber.Ctx, quote *models.Quote) error {
	if validation.NormalizeEncode(c.Query("encode")) == validation.EncodeText {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(quote.Text)
	}
	return c.JSON(quote)
}
