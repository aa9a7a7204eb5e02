package supplier

import (
	"context"
	"errors"
	"log/slog"

	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/sentinel"
	"gatepass/pkg/requestcontext"
)

// Service orchestrates supplier lifecycle and capability tokens.
type Service struct {
	store  Store
	issuer *TokenIssuer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, issuer *TokenIssuer, opts ...Option) *Service {
	svc := &Service{store: store, issuer: issuer}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

type CreateInput struct {
	EventID           domain.EventID
	Name              string
	Sectors           []domain.SectorID
	RegistrationLimit int
	SubCompanies      []SubCompany
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Supplier, error) {
	sup, err := NewSupplier(in.EventID, in.Name, in.Sectors, in.RegistrationLimit, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	sup.SubCompanies = append([]SubCompany{}, in.SubCompanies...)
	if err := s.store.Create(ctx, sup); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create supplier")
	}
	return sup, nil
}

func (s *Service) Get(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (*Supplier, error) {
	sup, err := s.store.FindByID(ctx, eventID, supplierID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return sup, nil
}

func (s *Service) List(ctx context.Context, eventID domain.EventID) ([]*Supplier, error) {
	suppliers, err := s.store.List(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list suppliers")
	}
	return suppliers, nil
}

// SetActive toggles whether the supplier can register and mint tokens.
func (s *Service) SetActive(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID, active bool) (*Supplier, error) {
	sup, err := s.store.FindByID(ctx, eventID, supplierID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	sup.Active = active
	sup.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, sup); err != nil {
		return nil, wrapStoreErr(err)
	}
	return sup, nil
}

// MintToken issues a fresh capability token, invalidating the previous one.
func (s *Service) MintToken(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (string, error) {
	sup, err := s.store.FindByID(ctx, eventID, supplierID)
	if err != nil {
		return "", wrapStoreErr(err)
	}
	if !sup.Active {
		return "", dErrors.New(dErrors.CodeConflict, "supplier is inactive")
	}
	token, err := s.issuer.Mint(sup, requestcontext.Now(ctx))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint capability token")
	}
	if err := s.store.Update(ctx, sup); err != nil {
		return "", wrapStoreErr(err)
	}
	s.logger.InfoContext(ctx, "capability token minted", "supplier_id", supplierID, "event_id", eventID)
	return token, nil
}

// Authenticate resolves a capability token to an actor identity. Used by the
// actor middleware for promoter requests.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (requestcontext.ActorIdentity, error) {
	claims, err := s.issuer.Verify(tokenString)
	if err != nil {
		return requestcontext.ActorIdentity{}, err
	}
	eventID, supplierID, err := claims.ParsedIDs()
	if err != nil {
		return requestcontext.ActorIdentity{}, err
	}
	sup, err := s.store.FindByID(ctx, eventID, supplierID)
	if err != nil {
		return requestcontext.ActorIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "unknown supplier")
	}
	if !sup.Active {
		return requestcontext.ActorIdentity{}, dErrors.New(dErrors.CodeUnauthorized, "supplier is inactive")
	}
	if err := CheckSecret(sup, claims.Secret); err != nil {
		return requestcontext.ActorIdentity{}, err
	}
	return requestcontext.ActorIdentity{
		Name:       sup.Name,
		Role:       domain.RolePromoter,
		SupplierID: sup.ID,
	}, nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "supplier not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "supplier store failure")
}
