package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Framework is a software framework students can list as a skill.
type Framework struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AddedBy   *uuid.UUID `gorm:"type:uuid;index" json:"added_by"`
	Adder     *User      `gorm:"foreignKey:AddedBy;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Framework) TableName() string { return "frameworks" }

func (f *Framework) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ProgrammingLanguage is a language students can list as a skill.
type ProgrammingLanguage struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	AddedBy   *uuid.UUID `gorm:"type:uuid;index" json:"added_by"`
	Adder     *User      `gorm:"foreignKey:AddedBy;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (ProgrammingLanguage) TableName() string { return "programming_languages" }

func (p *ProgrammingLanguage) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CatalogEntry is implemented by the named catalog entities.
type CatalogEntry interface {
	Framework | ProgrammingLanguage
}

// CatalogKind names a catalog for logs, audit entries and error messages.
type CatalogKind string

const (
	CatalogFrameworks           CatalogKind = "framework"
	CatalogProgrammingLanguages CatalogKind = "programming_language"
)

// CatalogRequest creates or renames a catalog entry.
type CatalogRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func (r *CatalogRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return ValidateStruct(r)
}

// CountResponse wraps a row count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// UniversityCourse is a degree programme users can enroll in.
type UniversityCourse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Code      *string   `gorm:"size:16;uniqueIndex" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UniversityCourse) TableName() string { return "university_courses" }

func (c *UniversityCourse) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewCatalogEntry builds a T carrying name and its adder.
func NewCatalogEntry[T CatalogEntry](name string, addedBy *uuid.UUID) *T {
	var entry T
	switch e := any(&entry).(type) {
	case *Framework:
		e.Name = name
		e.AddedBy = addedBy
	case *ProgrammingLanguage:
		e.Name = name
		e.AddedBy = addedBy
	}
	return &entry
}

// CatalogEntryID returns the id of a catalog entry.
func CatalogEntryID[T CatalogEntry](entry *T) uuid.UUID {
	switch e := any(entry).(type) {
	case *Framework:
		return e.ID
	case *ProgrammingLanguage:
		return e.ID
	}
	return uuid.Nil
}

// KindOf returns the catalog kind of T.
func KindOf[T CatalogEntry]() CatalogKind {
	var entry T
	if _, ok := any(entry).(Framework); ok {
		return CatalogFrameworks
	}
	return CatalogProgrammingLanguages
}
