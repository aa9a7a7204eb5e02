package handler

import (
	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Request bodies validate shape only; business rules live in the service.

type registerRequest struct {
	Name       string                                   `json:"name"`
	CPF        string                                   `json:"cpf"`
	PhotoRef   string                                   `json:"photo_ref"`
	Sectors    []domain.SectorID                        `json:"sector_ids"`
	SupplierID domain.SupplierID                        `json:"supplier_id,omitempty"`
	SubCompany string                                   `json:"sub_company,omitempty"`
	Wristbands map[domain.SectorID]domain.WristbandCode `json:"wristbands,omitempty"`
}

func (r *registerRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.CPF == "" {
		return dErrors.New(dErrors.CodeValidation, "cpf is required")
	}
	if r.PhotoRef == "" {
		return dErrors.New(dErrors.CodeValidation, "photo_ref is required")
	}
	if len(r.Sectors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "sector_ids must not be empty")
	}
	return nil
}

type statusRequest struct {
	Status     models.CheckinStatus                     `json:"status"`
	Wristbands map[domain.SectorID]domain.WristbandCode `json:"wristbands,omitempty"`
	Reason     string                                   `json:"reason,omitempty"`
}

func (r *statusRequest) Validate() error {
	if !r.Status.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", r.Status)
	}
	return nil
}

type substitutionRequest struct {
	Name     string            `json:"name"`
	CPF      string            `json:"cpf"`
	PhotoRef string            `json:"photo_ref"`
	Sectors  []domain.SectorID `json:"sector_ids,omitempty"`
}

func (r *substitutionRequest) Validate() error {
	if r.Name == "" || r.CPF == "" || r.PhotoRef == "" {
		return dErrors.New(dErrors.CodeValidation, "name, cpf and photo_ref are required")
	}
	return nil
}

type sectorChangeRequest struct {
	Sectors []domain.SectorID `json:"sector_ids"`
}

func (r *sectorChangeRequest) Validate() error {
	if len(r.Sectors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "sector_ids must not be empty")
	}
	return nil
}

type blockRequest struct {
	Reason string `json:"reason"`
}

func (r *blockRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type bulkSectorsRequest struct {
	IDs     []domain.AttendeeID `json:"ids"`
	Sectors []domain.SectorID   `json:"sector_ids"`
}

func (r *bulkSectorsRequest) Validate() error {
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}
	if len(r.Sectors) == 0 {
		return dErrors.New(dErrors.CodeValidation, "sector_ids must not be empty")
	}
	return nil
}

type bulkBlockRequest struct {
	IDs    []domain.AttendeeID `json:"ids"`
	Reason string              `json:"reason"`
}

func (r *bulkBlockRequest) Validate() error {
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type bulkUnblockRequest struct {
	IDs []domain.AttendeeID `json:"ids"`
}

func (r *bulkUnblockRequest) Validate() error {
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}
	return nil
}
