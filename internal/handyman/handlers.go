package handyman

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abenezer-sh/fixit/internal/apperrors"
	"github.com/abenezer-sh/fixit/internal/cache"
	"github.com/abenezer-sh/fixit/internal/middleware"
)

const searchCacheTTL = 60 * time.Second

type Handler struct {
	svc   *Service
	cache *cache.Redis
}

func NewHandler(svc *Service, c *cache.Redis) *Handler {
	return &Handler{svc: svc, cache: c}
}

// Register wires the handyman routes. Search and public profiles stay open;
// profile management requires authentication.
func (h *Handler) Register(e *echo.Echo, g *echo.Group) {
	e.GET("/handymen/search", h.Search)
	e.GET("/handymen/:id", h.GetByID)
	g.POST("/handymen", h.RegisterProfile)
	g.GET("/handymen/me", h.GetMyProfile)
	g.PATCH("/handymen/me", h.UpdateProfile)
}

func jsonError(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), echo.Map{"error": apperrors.PublicMessage(err)})
}

func (h *Handler) RegisterProfile(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	created, err := h.svc.Register(context.Background(), actor.ID, in)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"handyman": created})
}

func (h *Handler) GetMyProfile(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	profile, err := h.svc.GetByUserID(context.Background(), actor.ID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"handyman": profile})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	updated, err := h.svc.Update(context.Background(), actor.ID, in)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"handyman": updated})
}

func (h *Handler) GetByID(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing handyman id"})
	}

	profile, err := h.svc.GetByID(context.Background(), id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"handyman": profile})
}

// Search parses the filter/sort query params and serves results through the
// read-through cache.
func (h *Handler) Search(c echo.Context) error {
	params, err := parseSearchParams(c)
	if err != nil {
		return jsonError(c, err)
	}

	ctx := context.Background()
	key := searchCacheKey(params)

	var cached []SearchResult
	if hit, _ := h.cache.GetJSON(ctx, key, &cached); hit {
		return c.JSON(http.StatusOK, echo.Map{"count": len(cached), "handymen": cached})
	}

	results, err := h.svc.Search(ctx, params)
	if err != nil {
		return jsonError(c, err)
	}

	_ = h.cache.SetJSON(ctx, key, results, searchCacheTTL)

	return c.JSON(http.StatusOK, echo.Map{"count": len(results), "handymen": results})
}

func parseSearchParams(c echo.Context) (SearchParams, error) {
	var p SearchParams

	lngStr := c.QueryParam("longitude")
	latStr := c.QueryParam("latitude")
	if lngStr != "" || latStr != "" {
		lng, err1 := strconv.ParseFloat(lngStr, 64)
		lat, err2 := strconv.ParseFloat(latStr, 64)
		if err1 != nil || err2 != nil {
			return p, apperrors.Validation("invalid search coordinates")
		}
		p.Longitude = &lng
		p.Latitude = &lat
	}

	if v := c.QueryParam("max_distance"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return p, apperrors.Validation("invalid max_distance")
		}
		p.RadiusKM = radius
	}
	if v := c.QueryParam("min_rating"); v != "" {
		minRating, err := strconv.ParseFloat(v, 64)
		if err != nil || minRating < 0 || minRating > 5 {
			return p, apperrors.Validation("invalid min_rating")
		}
		p.MinRating = minRating
	}
	if v := c.QueryParam("max_price"); v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil || maxPrice < 0 {
			return p, apperrors.Validation("invalid max_price")
		}
		p.MaxPrice = &maxPrice
	}

	p.LocationName = strings.TrimSpace(c.QueryParam("location_name"))
	p.Category = strings.TrimSpace(c.QueryParam("category"))
	p.SortBy = c.QueryParam("sort_by")
	if p.SortBy == "" {
		p.SortBy = SortByDistance
	}
	switch p.SortBy {
	case SortByDistance, SortByRating, SortByPrice:
	default:
		return p, apperrors.Validation("sort_by must be one of distance, rating, price")
	}

	return p, nil
}

func searchCacheKey(p SearchParams) string {
	var lng, lat float64
	if p.hasCoordinates() {
		lng, lat = *p.Longitude, *p.Latitude
	}
	maxPrice := -1.0
	if p.MaxPrice != nil {
		maxPrice = *p.MaxPrice
	}
	return fmt.Sprintf("search:hm:%.5f:%.5f:%.1f:%s:%s:%.1f:%.2f:%s",
		lng, lat, p.RadiusKM, strings.ToLower(p.LocationName), p.Category, p.MinRating, maxPrice, p.SortBy)
}
