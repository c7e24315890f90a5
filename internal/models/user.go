package models

// User holds profile details that flow into assistant prompts, plus the
// bearer token obtained from the backend.
type User struct {
	Name                string `json:"name"`
	PersonalInformation string `json:"personalInformation"`
	MailPersonality     string `json:"mailPersonality"`
	Token               string `json:"token,omitempty"`
}
