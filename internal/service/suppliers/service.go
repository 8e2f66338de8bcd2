package suppliers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
)

// Directory is the supplier master data surface used by handlers.
type Directory interface {
	List(ctx context.Context, token string, query url.Values) ([]models.Supplier, error)
	Get(ctx context.Context, token, id string) (models.Supplier, error)
	Create(ctx context.Context, token string, supplier models.Supplier) (models.Supplier, error)
	Update(ctx context.Context, token, id string, supplier models.Supplier) (models.Supplier, error)
	Delete(ctx context.Context, token, id string) error
}

// Service forwards supplier CRUD to the upstream backend.
type Service struct {
	client backend.Client
	logger *zap.Logger
}

// NewService wires the supplier service.
func NewService(client backend.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

var listParams = []string{"q", "search", "page", "limit", "province_id", "rubber_type_id"}

// List returns suppliers matching the supported filters; other query keys are dropped.
func (s *Service) List(ctx context.Context, token string, query url.Values) ([]models.Supplier, error) {
	filtered := url.Values{}
	for _, key := range listParams {
		if v := strings.TrimSpace(query.Get(key)); v != "" {
			filtered.Set(key, v)
		}
	}

	records, err := s.client.ListSuppliers(ctx, token, filtered)
	if err != nil {
		return nil, err
	}
	out := make([]models.Supplier, 0, len(records))
	for _, r := range records {
		out = append(out, models.SupplierFromRecord(r))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, token, id string) (models.Supplier, error) {
	record, err := s.client.GetSupplier(ctx, token, id)
	if err != nil {
		return models.Supplier{}, err
	}
	return models.SupplierFromRecord(record), nil
}

func (s *Service) Create(ctx context.Context, token string, supplier models.Supplier) (models.Supplier, error) {
	supplier = normalize(supplier)
	if err := supplier.Validate(); err != nil {
		return models.Supplier{}, err
	}

	record, err := s.client.CreateSupplier(ctx, token, supplier)
	if err != nil {
		return models.Supplier{}, fmt.Errorf("create supplier %s: %w", supplier.Code, err)
	}

	created := merge(supplier, record)
	s.logger.Info("supplier created", zap.String("id", created.ID), zap.String("code", created.Code))
	return created, nil
}

func (s *Service) Update(ctx context.Context, token, id string, supplier models.Supplier) (models.Supplier, error) {
	supplier = normalize(supplier)
	if err := supplier.Validate(); err != nil {
		return models.Supplier{}, err
	}
	supplier.ID = id

	record, err := s.client.UpdateSupplier(ctx, token, id, supplier)
	if err != nil {
		return models.Supplier{}, fmt.Errorf("update supplier %s: %w", id, err)
	}
	s.logger.Info("supplier updated", zap.String("id", id))
	return merge(supplier, record), nil
}

func (s *Service) Delete(ctx context.Context, token, id string) error {
	if err := s.client.DeleteSupplier(ctx, token, id); err != nil {
		return fmt.Errorf("delete supplier %s: %w", id, err)
	}
	s.logger.Info("supplier deleted", zap.String("id", id))
	return nil
}

func normalize(s models.Supplier) models.Supplier {
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Phone = strings.ReplaceAll(strings.TrimSpace(s.Phone), "-", "")
	s.PostalCode = strings.TrimSpace(s.PostalCode)
	return s
}

// merge prefers the upstream echo but keeps submitted fields it left out.
func merge(submitted models.Supplier, record models.Record) models.Supplier {
	echoed := models.SupplierFromRecord(record)
	if echoed.Code == "" {
		echoed.Code = submitted.Code
	}
	if echoed.FirstName == "" {
		echoed = models.Supplier{
			ID:                echoed.ID,
			Code:              echoed.Code,
			Title:             submitted.Title,
			FirstName:         submitted.FirstName,
			LastName:          submitted.LastName,
			Address:           submitted.Address,
			ProvinceID:        submitted.ProvinceID,
			DistrictID:        submitted.DistrictID,
			SubdistrictID:     submitted.SubdistrictID,
			PostalCode:        submitted.PostalCode,
			Phone:             submitted.Phone,
			CertificateNumber: submitted.CertificateNumber,
			CertificateExpire: submitted.CertificateExpire,
			RubberTypeIDs:     submitted.RubberTypeIDs,
			Quota:             submitted.Quota,
			Score:             submitted.Score,
		}
	}
	if echoed.ID == "" {
		echoed.ID = submitted.ID
	}
	return echoed
}
