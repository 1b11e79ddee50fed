package domain

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRoleFromAPUID(t *testing.T) {
	tests := []struct {
		apuID string
		want  UserRole
	}{
		{"TP012345", RoleStudent},
		{"TC000001", RoleTeacher},
	}

	for _, tt := range tests {
		t.Run(tt.apuID, func(t *testing.T) {
			if got := RoleFromAPUID(tt.apuID); got != tt.want {
				t.Errorf("RoleFromAPUID(%q) = %q, want %q", tt.apuID, got, tt.want)
			}
		})
	}
}

func TestIsValidAPUID(t *testing.T) {
	valid := []string{"TP000000", "TC123456"}
	invalid := []string{"", "TP12345", "TX123456", "tp123456", "TP1234567", "TP12345a"}

	for _, id := range valid {
		if !IsValidAPUID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if IsValidAPUID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}

func TestUserJSONHidesSecrets(t *testing.T) {
	token := "gho_secret"
	githubID := int64(42)
	user := User{
		ID:                uuid.New(),
		APUID:             "TP000001",
		PasswordHash:      "hash",
		GitHubID:          &githubID,
		GitHubAccessToken: &token,
	}

	data, err := json.Marshal(user.ToResponse())
	if err != nil {
		t.Fatalf("Failed to marshal user: %v", err)
	}
	body := string(data)
	if strings.Contains(body, "hash") || strings.Contains(body, token) {
		t.Errorf("Response leaks secrets: %s", body)
	}
	if !strings.Contains(body, `"github_connected":true`) {
		t.Errorf("Expected github_connected true: %s", body)
	}
}

func TestGitHubLinkedFollowsID(t *testing.T) {
	githubID := int64(42)
	token := "gho_secret"

	tests := []struct {
		name      string
		user      User
		linked    bool
		hasGitHub bool
	}{
		{"nothing stored", User{}, false, false},
		{"id without token", User{GitHubID: &githubID}, true, false},
		{"id and token", User{GitHubID: &githubID, GitHubAccessToken: &token}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.GitHubLinked(); got != tt.linked {
				t.Errorf("GitHubLinked() = %v, want %v", got, tt.linked)
			}
			if got := tt.user.HasGitHub(); got != tt.hasGitHub {
				t.Errorf("HasGitHub() = %v, want %v", got, tt.hasGitHub)
			}
			if got := tt.user.ToResponse().GitHubConnected; got != tt.linked {
				t.Errorf("GitHubConnected = %v, want %v", got, tt.linked)
			}
		})
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	email := "student@example.com"
	bad := "not-an-email"

	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string
	}{
		{"valid", RegisterRequest{APUID: " tp000001 ", Password: "Str0ng!Pass", Email: &email}, ""},
		{"bad apu id", RegisterRequest{APUID: "XX000001", Password: "Str0ng!Pass"}, "apu_id"},
		{"weak password", RegisterRequest{APUID: "TP000001", Password: "weakpass"}, "password"},
		{"bad email", RegisterRequest{APUID: "TP000001", Password: "Str0ng!Pass", Email: &bad}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if tt.req.APUID != "TP000001" {
					t.Errorf("Expected normalised apu_id, got %q", tt.req.APUID)
				}
				return
			}

			apiErr := AsAPIError(err)
			if apiErr.Status != http.StatusUnprocessableEntity {
				t.Fatalf("Expected 422, got %d (%v)", apiErr.Status, err)
			}
			if len(apiErr.Fields) == 0 || apiErr.Fields[0].Field != tt.wantField {
				t.Errorf("Expected field %q, got %+v", tt.wantField, apiErr.Fields)
			}
		})
	}
}

func TestParseGitHubRepoURL(t *testing.T) {
	tests := []struct {
		raw       string
		owner     string
		name      string
		wantError bool
	}{
		{"https://github.com/octo/hello", "octo", "hello", false},
		{"https://github.com/octo/hello.git", "octo", "hello", false},
		{"https://github.com/octo/hello/", "octo", "hello", false},
		{"http://github.com/octo/hello", "", "", true},
		{"https://gitlab.com/octo/hello", "", "", true},
		{"https://github.com/octo", "", "", true},
		{"https://github.com/octo/hello/tree/main", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			owner, name, err := ParseGitHubRepoURL(tt.raw)
			if tt.wantError {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if owner != tt.owner || name != tt.name {
				t.Errorf("Got %s/%s, want %s/%s", owner, name, tt.owner, tt.name)
			}
		})
	}
}

func TestMergeSkills(t *testing.T) {
	got := MergeSkills([]string{"Go", "Docker"}, []string{"go", " Kubernetes ", "", "docker", "Rust"})
	want := []string{"Go", "Docker", "Kubernetes", "Rust"}

	if len(got) != len(want) {
		t.Fatalf("Got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddSkillsRequestLimits(t *testing.T) {
	tooMany := make([]string, 21)
	for i := range tooMany {
		tooMany[i] = "skill"
	}

	if err := (&AddSkillsRequest{Skills: tooMany}).Validate(); err == nil {
		t.Error("Expected error for 21 skills")
	}
	if err := (&AddSkillsRequest{}).Validate(); err == nil {
		t.Error("Expected error for empty skills")
	}
	if err := (&AddSkillsRequest{Skills: []string{strings.Repeat("x", 51)}}).Validate(); err == nil {
		t.Error("Expected error for long skill")
	}
	if err := (&AddSkillsRequest{Skills: []string{"Go"}}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRepositoryCursorRoundTrip(t *testing.T) {
	c := RepositoryCursor{
		Relevance: 125,
		CreatedAt: time.Date(2025, 3, 1, 10, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	decoded, err := DecodeRepositoryCursor(c.Encode())
	if err != nil {
		t.Fatalf("Failed to decode cursor: %v", err)
	}
	if decoded.Relevance != c.Relevance || !decoded.CreatedAt.Equal(c.CreatedAt) || decoded.ID != c.ID {
		t.Errorf("Got %+v, want %+v", decoded, c)
	}
}

func TestDecodeRepositoryCursorRejectsGarbage(t *testing.T) {
	enc := func(s string) string { return base64URL(s) }
	inputs := []string{
		"!!!",
		enc("v2|0|2025-01-01T00:00:00Z|" + uuid.NewString()),
		enc("v1|0|2025-01-01T00:00:00Z"),
		enc("v1|x|2025-01-01T00:00:00Z|" + uuid.NewString()),
		enc("v1|0|yesterday|" + uuid.NewString()),
		enc("v1|0|2025-01-01T00:00:00Z|not-a-uuid"),
	}

	for _, in := range inputs {
		if _, err := DecodeRepositoryCursor(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestAsAPIErrorWrapsUnknown(t *testing.T) {
	apiErr := AsAPIError(http.ErrHandlerTimeout)
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != CodeInternal {
		t.Errorf("Unexpected error %+v", apiErr)
	}
	if !IsCode(NewNotFoundError("x"), CodeNotFound) {
		t.Error("Expected IsCode to match")
	}
}

func base64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
