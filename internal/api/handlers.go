package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"estatehub/server/config"
	"estatehub/server/internal/auth"
	"estatehub/server/internal/models"
	"estatehub/server/internal/pricing"
	"estatehub/server/internal/storage"
)

// StorageSourceHeader tells clients which store served the response.
const StorageSourceHeader = "X-Storage-Source"

// Catalog is the listing service the handlers call. *catalog.Service implements it.
type Catalog interface {
	Mode() string
	FetchAll(ctx context.Context) storage.Result[[]models.Listing]
	ActiveListings(ctx context.Context) storage.Result[[]models.Listing]
	ListingsByStatus(ctx context.Context, status models.Status) storage.Result[[]models.Listing]
	Get(ctx context.Context, id int64) storage.Result[models.Listing]
	Search(ctx context.Context, query string, filters models.Filters) storage.Result[[]models.Listing]
	Create(ctx context.Context, draft models.Listing) storage.Result[models.Listing]
	Update(ctx context.Context, id int64, patch models.ListingPatch) storage.Result[models.Listing]
	Activate(ctx context.Context, id int64) storage.Result[models.Listing]
	Deactivate(ctx context.Context, id int64) storage.Result[models.Listing]
	Delete(ctx context.Context, id int64) storage.Result[int]
	Stats(ctx context.Context) storage.Result[models.ListingStats]
}

// Authenticator issues admin sessions. *auth.Manager implements it.
type Authenticator interface {
	Login(username, password string) (auth.Session, error)
	Middleware() gin.HandlerFunc
}

type Handler struct {
	catalog Catalog
	auth    Authenticator
	logger  *logrus.Logger
}

type SearchQuery struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Type     string `form:"type"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	LoggedIn  bool      `json:"logged_in"`
	LoginTime time.Time `json:"login_time"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewHandler(catalog Catalog, authn Authenticator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		catalog: catalog,
		auth:    authn,
		logger:  logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": h.catalog.Mode(),
	})
}

// Categories returns the navigation menu and the offer types a listing can carry.
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": config.SupportedCategories,
		"types":      config.SupportedOfferTypes,
	})
}

func (h *Handler) GetListings(c *gin.Context) {
	res := h.catalog.ActiveListings(c.Request.Context())
	if !h.check(c, res.Source, res.Err, "Failed to get listings") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) SearchListings(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search query"})
		return
	}

	filters, err := q.filters()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.catalog.Search(c.Request.Context(), q.Query, filters)
	if !h.check(c, res.Source, res.Err, "Failed to search listings") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

// filters turns query parameters into catalog filters. Prices accept plain numbers
// or display strings such as "1.5 Cr".
func (q SearchQuery) filters() (models.Filters, error) {
	var f models.Filters

	category, ok := config.ParseCategory(q.Category)
	if !ok {
		return f, fmt.Errorf("unknown category %q, expected one of %s", q.Category, strings.Join(config.GetCategoryLabels(), ", "))
	}
	offer, ok := config.ParseOfferType(q.Type)
	if !ok {
		return f, errors.New("unknown type: " + q.Type)
	}
	f.Category = category
	f.Type = offer

	var err error
	if f.MinPrice, err = parsePriceBound(q.MinPrice); err != nil {
		return f, errors.New("invalid minPrice: " + q.MinPrice)
	}
	if f.MaxPrice, err = parsePriceBound(q.MaxPrice); err != nil {
		return f, errors.New("invalid maxPrice: " + q.MaxPrice)
	}
	return f, nil
}

func parsePriceBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	amount, ok := pricing.ExtractNumericPrice(s)
	if !ok {
		return nil, errors.New("not a price")
	}
	return &amount, nil
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	res := h.catalog.Get(c.Request.Context(), id)
	if !h.check(c, res.Source, res.Err, "Failed to get listing") {
		return
	}
	if res.Value.IsInactive() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	session, err := h.auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin login is disabled"})
		return
	case err != nil:
		h.logger.WithField("username", req.Username).Warn("Rejected admin login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	h.logger.WithField("username", req.Username).Info("Admin logged in")
	c.JSON(http.StatusOK, LoginResponse{
		Token:     session.Token,
		LoggedIn:  true,
		LoginTime: session.IssuedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

func (h *Handler) AdminListings(c *gin.Context) {
	var res storage.Result[[]models.Listing]
	if status := c.Query("status"); status != "" {
		s := models.Status(strings.ToLower(status))
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + status})
			return
		}
		res = h.catalog.ListingsByStatus(c.Request.Context(), s)
	} else {
		res = h.catalog.FetchAll(c.Request.Context())
	}

	if !h.check(c, res.Source, res.Err, "Failed to get listings") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) AdminStats(c *gin.Context) {
	res := h.catalog.Stats(c.Request.Context())
	if !h.check(c, res.Source, res.Err, "Failed to get listing stats") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var draft models.Listing
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing: " + err.Error()})
		return
	}
	draft.ID = 0
	if category, ok := config.ParseCategory(string(draft.Category)); ok {
		draft.Category = category
	}

	res := h.catalog.Create(c.Request.Context(), draft)
	if !h.check(c, res.Source, res.Err, "Failed to create listing") {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"listing_id": res.Value.ID,
		"source":     res.Source.String(),
	}).Info("Listing created")
	c.JSON(http.StatusCreated, res.Value)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	var patch models.ListingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing update: " + err.Error()})
		return
	}

	res := h.catalog.Update(c.Request.Context(), id, patch)
	if !h.check(c, res.Source, res.Err, "Failed to update listing") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) ActivateListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	res := h.catalog.Activate(c.Request.Context(), id)
	if !h.check(c, res.Source, res.Err, "Failed to activate listing") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) DeactivateListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	res := h.catalog.Deactivate(c.Request.Context(), id)
	if !h.check(c, res.Source, res.Err, "Failed to deactivate listing") {
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) DeleteListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	res := h.catalog.Delete(c.Request.Context(), id)
	if !h.check(c, res.Source, res.Err, "Failed to delete listing") {
		return
	}
	h.logger.WithField("listing_id", id).Info("Listing deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": res.Value})
}

func (h *Handler) listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return 0, false
	}
	return id, true
}

// check writes the storage source header, or an error response when err is set.
// It reports whether the handler should go on writing a success response.
func (h *Handler) check(c *gin.Context, source storage.Source, err error, msg string) bool {
	if err == nil {
		c.Header(StorageSourceHeader, source.String())
		return true
	}

	switch {
	case errors.Is(err, models.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, models.ErrInvalidListing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error(msg)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
	}
	return false
}
