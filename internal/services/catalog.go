package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/models"
)

// CatalogService wraps the product and category endpoints. Listing calls
// wake the backend first since they are usually the first calls of a session.
type CatalogService struct {
	backend Backend
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(backend Backend) *CatalogService {
	return &CatalogService{backend: backend}
}

type productList struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       []models.Product `json:"data"`
	Pagination models.PageInfo  `json:"pagination"`
}

// Products returns one page of products.
func (s *CatalogService) Products(ctx context.Context, q models.ProductQuery) ([]models.Product, models.PageInfo, error) {
	query := url.Values{}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp productList
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/products", Query: query, Wake: true}, &resp)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	env := envelope[any]{Success: resp.Success, Message: resp.Message}
	if err := env.check("Could not load products."); err != nil {
		return nil, models.PageInfo{}, err
	}
	return resp.Data, resp.Pagination, nil
}

// ProductBySlug returns a single product.
func (s *CatalogService) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var resp envelope[*models.Product]
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/products/slug/" + url.PathEscape(slug),
		Route:  "/products/slug/:slug",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("Product not found."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Categories returns every category.
func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	var resp envelope[[]models.Category]
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/categories", Wake: true}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("Could not load categories."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
