package model

import "fmt"

type PartnerKind string

const (
	KindAssociation   PartnerKind = "ASSOCIACAO"
	KindExternalDonor PartnerKind = "DOADOR_EXTERNO"
	KindSupplier      PartnerKind = "FORNECEDOR"
	KindOther         PartnerKind = "OUTRO"
)

func (k PartnerKind) Valid() bool {
	switch k {
	case KindAssociation, KindExternalDonor, KindSupplier, KindOther:
		return true
	}
	return false
}

type Category struct {
	Model
	Name string `gorm:"type:varchar(100);uniqueIndex:idx_categories_name;not null" json:"name" validate:"required,max=100"`
}

type Material struct {
	Model
	Code       *string   `gorm:"type:varchar(20);uniqueIndex:idx_materials_code" json:"code"`
	Name       string    `gorm:"type:varchar(100);uniqueIndex:idx_materials_name;not null" json:"name"`
	Unit       string    `gorm:"type:varchar(20);not null" json:"unit"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Active     bool      `gorm:"not null;index" json:"active"`
}

// DefaultUnit is used when a material is created without one.
const DefaultUnit = "Kg"

// MaterialCode formats the display code derived from the material id.
func MaterialCode(id uint) string {
	return fmt.Sprintf("MAT-%04d", id)
}

// MaterialPatch carries the fields a partial update may change.
type MaterialPatch struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Unit       *string `json:"unit" validate:"omitempty,min=1,max=20"`
	CategoryID *uint   `json:"category_id"`
	Active     *bool   `json:"active"`
}

func (p MaterialPatch) Apply(m *Material) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Unit != nil {
		m.Unit = *p.Unit
	}
	if p.CategoryID != nil {
		m.CategoryID = p.CategoryID
		m.Category = nil
	}
	if p.Active != nil {
		m.Active = *p.Active
	}
}

type PartnerType struct {
	Model
	Name string      `gorm:"type:varchar(60);uniqueIndex:idx_partner_types_name;not null" json:"name" validate:"required,max=60"`
	Kind PartnerKind `gorm:"type:varchar(30);not null" json:"kind" validate:"required,oneof=ASSOCIACAO DOADOR_EXTERNO FORNECEDOR OUTRO"`
}

// DefaultPartnerTypes are seeded at startup, one per kind.
func DefaultPartnerTypes() []PartnerType {
	return []PartnerType{
		{Name: "Associação", Kind: KindAssociation},
		{Name: "Doador Externo", Kind: KindExternalDonor},
		{Name: "Fornecedor", Kind: KindSupplier},
		{Name: "Outro", Kind: KindOther},
	}
}

// Partner is any external party that hands material to the cooperative.
// Kind is copied from the partner type so reports can group without a join.
type Partner struct {
	Model
	Name          string       `gorm:"type:varchar(150);uniqueIndex:idx_partners_name;not null" json:"name"`
	PartnerTypeID uint         `gorm:"not null;index" json:"partner_type_id"`
	PartnerType   *PartnerType `gorm:"foreignKey:PartnerTypeID" json:"partner_type,omitempty"`
	Kind          PartnerKind  `gorm:"type:varchar(30);not null;index" json:"kind"`
}

type PartnerPatch struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=150"`
}

func (p PartnerPatch) Apply(partner *Partner) {
	if p.Name != nil {
		partner.Name = *p.Name
	}
}

// Association is the detail record of a partner of kind ASSOCIACAO.
type Association struct {
	PartnerID uint     `gorm:"primaryKey;autoIncrement:false" json:"partner_id"`
	Partner   *Partner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	Leader    string   `gorm:"type:varchar(150)" json:"leader"`
	Phone     string   `gorm:"type:varchar(30)" json:"phone"`
	TaxID     *string  `gorm:"type:varchar(20);uniqueIndex:idx_associations_tax_id" json:"tax_id"`
	Active    bool     `gorm:"not null;index" json:"active"`
}

// AssociationPatch updates the partner name and the association detail together.
type AssociationPatch struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=150"`
	Leader *string `json:"leader" validate:"omitempty,max=150"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
	TaxID  *string `json:"tax_id" validate:"omitempty,max=20"`
	Active *bool   `json:"active"`
}

func (p AssociationPatch) Apply(a *Association) {
	if a.Partner != nil {
		PartnerPatch{Name: p.Name}.Apply(a.Partner)
	}
	if p.Leader != nil {
		a.Leader = *p.Leader
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.TaxID != nil {
		a.TaxID = p.TaxID
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
}

type Buyer struct {
	Model
	Name   string  `gorm:"type:varchar(150);uniqueIndex:idx_buyers_name;not null" json:"name"`
	TaxID  *string `gorm:"type:varchar(20);uniqueIndex:idx_buyers_tax_id" json:"tax_id"`
	Phone  string  `gorm:"type:varchar(30)" json:"phone"`
	Email  string  `gorm:"type:varchar(150)" json:"email"`
	Active bool    `gorm:"not null;index" json:"active"`
}

type BuyerPatch struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=150"`
	TaxID  *string `json:"tax_id" validate:"omitempty,max=20"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Active *bool   `json:"active"`
}

func (p BuyerPatch) Apply(b *Buyer) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.TaxID != nil {
		b.TaxID = p.TaxID
	}
	if p.Phone != nil {
		b.Phone = *p.Phone
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
	if p.Active != nil {
		b.Active = *p.Active
	}
}
