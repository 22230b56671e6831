package gifts

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes collections over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs a gifts HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type collectionResponse struct {
	Status   string     `json:"status"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Filter   FilterKind `json:"filter"`
	Stats    Stats      `json:"stats"`
	Items    []Record   `json:"items"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// GetCollection loads a collection and returns the filtered view. Stats always
// cover the whole collection.
func (h *Handler) GetCollection(c *fiber.Ctx) error {
	filter, err := ParseFilter(c.Query("filter"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid collection name")
	}
	authz, _ := c.Locals("authorizer").(Authorizer)

	col, err := h.service.Load(c.UserContext(), authz, name)
	status := "ok"
	switch {
	case err == nil:
	case IsEmpty(err):
		status = "no_results"
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidName):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	items := slices.Collect(col.Filter(filter))
	if items == nil {
		items = []Record{}
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{
		Status:   status,
		Name:     col.Name,
		Slug:     col.Slug,
		Filter:   filter,
		Stats:    col.Stats,
		Items:    items,
		LoadedAt: col.LoadedAt,
	})
}
