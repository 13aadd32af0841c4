package service

type RegisterInput struct {
	Username        string `json:"username" validate:"notblank,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ReportInput struct {
	Name              string `json:"name" validate:"notblank,max=200"`
	DOB               string `json:"dob" validate:"pastdate"`
	Category          string `json:"category" validate:"category"`
	LastKnownLocation string `json:"last_known_location" validate:"max=500"`
	Description       string `json:"description" validate:"max=5000"`
	ContactName       string `json:"contact_name" validate:"max=200"`
	ContactPhone      string `json:"contact_phone" validate:"max=50"`
	ContactEmail      string `json:"contact_email" validate:"omitempty,email"`
	ImageURL          string `json:"image_url" validate:"omitempty,url"`
}

type DonationInput struct {
	Name    string `json:"name" validate:"notblank,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"max=5000"`
}

type VolunteerInput struct {
	Name         string `json:"name" validate:"notblank,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"max=50"`
	Skills       string `json:"skills" validate:"max=1000"`
	Availability string `json:"availability" validate:"max=200"`
	Message      string `json:"message" validate:"max=5000"`
}

type StoryInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Content     string `json:"content" validate:"notblank"`
	Category    string `json:"category" validate:"max=50"`
	IsPublished bool   `json:"is_published"`
}

type CaseStateInput struct {
	State string `json:"state" validate:"case_state"`
}

type SettingsInput struct {
	SiteName         string `json:"site_name" validate:"notblank,max=200"`
	ContactEmail     string `json:"contact_email" validate:"required,email"`
	HelplineNumber   string `json:"helpline_number" validate:"max=50"`
	EmergencyNumber  string `json:"emergency_number" validate:"max=50"`
	AboutText        string `json:"about_text" validate:"max=5000"`
	MaintenanceMode  bool   `json:"maintenance_mode"`
	MaxFileSize      string `json:"max_file_size" validate:"max=20"`
	AllowedFileTypes string `json:"allowed_file_types" validate:"max=200"`
}

// ListFilter narrows an admin listing. Term is a case-insensitive substring;
// Status only applies to reports.
type ListFilter struct {
	Term   string `json:"term" form:"term" validate:"max=200"`
	Status string `json:"status" form:"status" validate:"omitempty,oneof=all missing investigating found"`
}
