package service

import (
	"context"
	"errors"

	"payhub/internal/apierror"
	"payhub/internal/config"
	"payhub/internal/repository"

	"gorm.io/gorm"
)

// AttributionService resolves the legal counterparty (merchant) that owns an
// object, a certificate or a settling transaction.
type AttributionService interface {
	// ResolveMerchant returns the franchise owning objectID. Nominal objects
	// return nil without consulting the object → franchise mapping.
	ResolveMerchant(ctx context.Context, objectID int64) (*int64, error)
	ResolveByCertificate(ctx context.Context, code string) (*int64, error)
	// ClassifierFacts returns the franchise facts of a settling transaction.
	// Anything but exactly one row is a consistency fault.
	ClassifierFacts(ctx context.Context, tx *gorm.DB, transactionID string) (repository.FranchiseFacts, error)
	// Merchant returns the configured merchant acting for franchiseID; nil
	// (nominal object) maps to the default merchant.
	Merchant(franchiseID *int64) (config.Merchant, error)
}

type attributionService struct {
	repo            repository.AttributionRepository
	merchants       config.Merchants
	defaultMerchant string
}

func NewAttributionService(repo repository.AttributionRepository, merchants config.Merchants, defaultMerchant string) AttributionService {
	return &attributionService{repo: repo, merchants: merchants, defaultMerchant: defaultMerchant}
}

func (s *attributionService) ResolveMerchant(ctx context.Context, objectID int64) (*int64, error) {
	obj, err := s.repo.FindObject(ctx, objectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("object %d not found", objectID)
	}
	if err != nil {
		return nil, err
	}
	if obj.IsNominal {
		return nil, nil
	}

	franchiseID, err := s.repo.FranchiseByObject(ctx, objectID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && franchiseID == nil) {
		return nil, apierror.Attribution("merchant not established on object %d", objectID)
	}
	if err != nil {
		return nil, err
	}
	return franchiseID, nil
}

func (s *attributionService) ResolveByCertificate(ctx context.Context, code string) (*int64, error) {
	objectID, err := s.repo.ObjectByCertificate(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Attribution("certificate %s is not bound to an object", code)
	}
	if err != nil {
		return nil, err
	}
	return s.ResolveMerchant(ctx, objectID)
}

func (s *attributionService) ClassifierFacts(ctx context.Context, tx *gorm.DB, transactionID string) (repository.FranchiseFacts, error) {
	rows, err := s.repo.ClassifierFacts(ctx, tx, transactionID)
	if err != nil {
		return repository.FranchiseFacts{}, err
	}
	if len(rows) != 1 {
		return repository.FranchiseFacts{}, apierror.Consistency(
			"transaction %s: expected one franchise attribution row, got %d", transactionID, len(rows))
	}
	return rows[0], nil
}

func (s *attributionService) Merchant(franchiseID *int64) (config.Merchant, error) {
	if franchiseID == nil {
		m, ok := s.merchants.ByName(s.defaultMerchant)
		if !ok {
			return config.Merchant{}, apierror.Attribution("default merchant %q is not configured", s.defaultMerchant)
		}
		return m, nil
	}
	m, ok := s.merchants.ByFranchise(*franchiseID)
	if !ok {
		return config.Merchant{}, apierror.Attribution("merchant not established for franchise %d", *franchiseID)
	}
	return m, nil
}
