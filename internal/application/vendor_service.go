package application

import (
	"context"
	"errors"
	"time"

	"github.com/pharmacy-platform/stock-request-service/internal/domain"
	apperrors "github.com/pharmacy-platform/stock-request-service/pkg/errors"
)

// VendorService exposes the read-only vendor directory
type VendorService struct {
	vendors   domain.VendorRepository
	opTimeout time.Duration
}

// NewVendorService creates a new VendorService
func NewVendorService(vendors domain.VendorRepository) *VendorService {
	return &VendorService{
		vendors:   vendors,
		opTimeout: DefaultOperationTimeout,
	}
}

// ListVendors retrieves the vendor directory, optionally active vendors only
func (s *VendorService) ListVendors(ctx context.Context, activeOnly bool) ([]*domain.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	vendors, err := s.vendors.FindAll(ctx, activeOnly)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.ErrTimeout("listVendors")
		}
		return nil, apperrors.ErrInternal("failed to list vendors").Wrap(err)
	}
	if vendors == nil {
		vendors = make([]*domain.Vendor, 0)
	}
	return vendors, nil
}

// GetVendor retrieves a single vendor
func (s *VendorService) GetVendor(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, domain.ErrVendorNotFound) {
			return nil, apperrors.ErrNotFoundWithID("Vendor", vendorID)
		}
		if ctx.Err() != nil {
			return nil, apperrors.ErrTimeout("getVendor")
		}
		return nil, apperrors.ErrInternal("failed to load vendor").Wrap(err)
	}
	return vendor, nil
}
