package model

// SystemSettings are the site-wide values editable from the admin panel.
type SystemSettings struct {
	SiteName         string `json:"site_name"`
	ContactEmail     string `json:"contact_email"`
	HelplineNumber   string `json:"helpline_number"`
	EmergencyNumber  string `json:"emergency_number"`
	AboutText        string `json:"about_text"`
	MaintenanceMode  bool   `json:"maintenance_mode"`
	MaxFileSize      string `json:"max_file_size"`
	AllowedFileTypes string `json:"allowed_file_types"`
}

func DefaultSettings() SystemSettings {
	return SystemSettings{
		SiteName:         "The Broken Weave",
		ContactEmail:     "info@brokenweave.org",
		HelplineNumber:   "+91-XXXX-XXXX",
		EmergencyNumber:  "100",
		AboutText:        "Supporting children, women, and senior citizens affected by communal unrest.",
		MaintenanceMode:  false,
		MaxFileSize:      "5MB",
		AllowedFileTypes: "jpg,jpeg,png,pdf",
	}
}
