package services

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/quickcommerce/internal/api"
	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/models"
)

// AddressService wraps the /location endpoints.
type AddressService struct {
	backend Backend
	logger  *slog.Logger
}

// NewAddressService constructs AddressService.
func NewAddressService(backend Backend, logger *slog.Logger) *AddressService {
	return &AddressService{backend: backend, logger: logger}
}

// List returns the saved addresses.
func (s *AddressService) List(ctx context.Context) ([]models.Address, error) {
	var resp envelope[[]models.Address]
	if err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodGet, Path: "/location/addresses"}, &resp); err != nil {
		return nil, err
	}
	if err := resp.check("Failed to load addresses."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Save stores a new address and returns it with its server id.
func (s *AddressService) Save(ctx context.Context, addr models.Address) (*models.Address, error) {
	var resp envelope[*models.Address]
	err := s.backend.DoJSON(ctx, api.Request{Method: http.MethodPost, Path: "/location/addresses", Body: addr}, &resp)
	if err != nil {
		return nil, err
	}
	if err := resp.check("Failed to save address."); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Delete removes a saved address.
func (s *AddressService) Delete(ctx context.Context, id string) error {
	var resp envelope[any]
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodDelete,
		Path:   "/location/addresses/" + url.PathEscape(id),
		Route:  "/location/addresses/:id",
	}, &resp)
	if err != nil {
		return err
	}
	return resp.check("Failed to delete address.")
}

// CheckDeliverability reports whether the postal code is served. Failures
// are reported as not deliverable, together with the cause.
func (s *AddressService) CheckDeliverability(ctx context.Context, postalCode string) (bool, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return false, nil
	}

	var resp models.DeliverabilityResponse
	err := s.backend.DoJSON(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "/location/check-deliverability",
		Query:  url.Values{"postalCode": {postalCode}},
	}, &resp)
	if err != nil {
		s.logger.WarnContext(ctx, "[location] deliverability check failed", "postalCode", postalCode, "error", err)
		return false, apperr.Wrap(apperr.KindTransient, err, "Could not confirm delivery to this postal code.")
	}
	return resp.IsDeliverable, nil
}
