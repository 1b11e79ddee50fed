// Package domain contains the core entities, request payloads and API errors.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole defines valid user roles.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// RoleFromAPUID derives the role from the ID prefix. Self-registration can
// never produce an admin.
func RoleFromAPUID(apuID string) UserRole {
	if strings.HasPrefix(apuID, "TC") {
		return RoleTeacher
	}
	return RoleStudent
}

// CourseYear is the year of study within a university course.
type CourseYear string

const (
	CourseYear1 CourseYear = "YEAR_1"
	CourseYear2 CourseYear = "YEAR_2"
	CourseYear3 CourseYear = "YEAR_3"
	CourseYear4 CourseYear = "YEAR_4"
)

// User is a registered student, teacher or administrator.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	APUID        string    `gorm:"column:apu_id;size:8;uniqueIndex;not null" json:"apu_id"`
	FirstName    *string   `gorm:"size:50;index" json:"first_name"`
	LastName     *string   `gorm:"size:50;index" json:"last_name"`
	Email        *string   `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	Role         UserRole  `gorm:"size:16;not null;index" json:"role"`

	GitHubID          *int64  `gorm:"column:github_id;uniqueIndex" json:"github_id"`
	GitHubUsername    *string `gorm:"column:github_username;size:50;index" json:"github_username"`
	GitHubAccessToken *string `gorm:"column:github_access_token;size:255" json:"-"`
	GitHubAvatarURL   *string `gorm:"column:github_avatar_url;size:255" json:"github_avatar_url"`

	UniversityCourseID *uuid.UUID        `gorm:"type:uuid;index" json:"university_course_id"`
	UniversityCourse   *UniversityCourse `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CourseYear         *CourseYear       `gorm:"size:8" json:"course_year"`

	Frameworks           []Framework           `gorm:"many2many:user_framework_links;constraint:OnDelete:CASCADE" json:"-"`
	ProgrammingLanguages []ProgrammingLanguage `gorm:"many2many:user_programming_language_links;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasGitHub reports whether the user has a linked GitHub account with a
// usable access token.
func (u *User) HasGitHub() bool {
	return u.GitHubAccessToken != nil && *u.GitHubAccessToken != ""
}

// GitHubLinked reports whether a GitHub account id is stored, with or
// without a token.
func (u *User) GitHubLinked() bool {
	return u.GitHubID != nil
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                 uuid.UUID   `json:"id"`
	APUID              string      `json:"apu_id"`
	FirstName          *string     `json:"first_name"`
	LastName           *string     `json:"last_name"`
	Email              *string     `json:"email"`
	Role               UserRole    `json:"role"`
	IsActive           bool        `json:"is_active"`
	GitHubID           *int64      `json:"github_id"`
	GitHubUsername     *string     `json:"github_username"`
	GitHubAvatarURL    *string     `json:"github_avatar_url"`
	GitHubConnected    bool        `json:"github_connected"`
	UniversityCourseID *uuid.UUID  `json:"university_course_id"`
	CourseYear         *CourseYear `json:"course_year"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// ToResponse converts a User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                 u.ID,
		APUID:              u.APUID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		Role:               u.Role,
		IsActive:           u.IsActive,
		GitHubID:           u.GitHubID,
		GitHubUsername:     u.GitHubUsername,
		GitHubAvatarURL:    u.GitHubAvatarURL,
		GitHubConnected:    u.GitHubLinked(),
		UniversityCourseID: u.UniversityCourseID,
		CourseYear:         u.CourseYear,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	APUID     string  `json:"apu_id" validate:"required,apu_id"`
	Password  string  `json:"password" validate:"required,password"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	// Role is accepted for compatibility and ignored.
	Role *string `json:"role,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	r.APUID = strings.ToUpper(strings.TrimSpace(r.APUID))
	r.FirstName = trimOptional(r.FirstName)
	r.LastName = trimOptional(r.LastName)
	r.Email = trimOptional(r.Email)
	return ValidateStruct(r)
}

// CreateUserRequest is the administrator user-creation payload.
type CreateUserRequest struct {
	APUID     string   `json:"apu_id" validate:"required,apu_id"`
	Password  string   `json:"password" validate:"required,password"`
	FirstName *string  `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName  *string  `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role      UserRole `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

func (r *CreateUserRequest) Validate() error {
	r.APUID = strings.ToUpper(strings.TrimSpace(r.APUID))
	r.FirstName = trimOptional(r.FirstName)
	r.LastName = trimOptional(r.LastName)
	r.Email = trimOptional(r.Email)
	return ValidateStruct(r)
}

// LoginRequest carries the OAuth2 password-grant credentials. Username is the
// APU ID.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=8"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.ToUpper(strings.TrimSpace(r.Username))
	return ValidateStruct(r)
}

// RefreshRequest carries the refresh token when it is not sent as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// UpdateCourseRequest sets the caller's course enrollment.
type UpdateCourseRequest struct {
	UniversityCourseID uuid.UUID  `json:"university_course_id" validate:"required"`
	CourseYear         CourseYear `json:"course_year" validate:"required,oneof=YEAR_1 YEAR_2 YEAR_3 YEAR_4"`
}

func (r *UpdateCourseRequest) Validate() error {
	return ValidateStruct(r)
}

// SetPreferencesRequest replaces a user's framework or language preferences.
type SetPreferencesRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"max=50"`
}

func (r *SetPreferencesRequest) Validate() error {
	return ValidateStruct(r)
}

// GitHubProfile is the subset of a GitHub account persisted on link.
type GitHubProfile struct {
	ID          int64
	Login       string
	AvatarURL   string
	Email       string
	AccessToken string
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
