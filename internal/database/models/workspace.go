package models

const DefaultTimezone = "America/New_York"

type Workspace struct {
	Base
	Name string `gorm:"not null" json:"name"`
	// SlackWebhook holds the age-encrypted incoming webhook URL.
	SlackWebhook string `json:"-"`
	Timezone     string `gorm:"not null;default:'America/New_York'" json:"timezone"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

func (w *Workspace) HasWebhook() bool {
	return w.SlackWebhook != ""
}
