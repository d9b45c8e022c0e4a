package models

// UserApp is one entry on a profile's shortcut list.
type UserApp struct {
	ID         string  `json:"id"`
	AppID      string  `json:"appId"`
	URL        string  `json:"url"`
	CustomName *string `json:"customName,omitempty"`
	CustomIcon *string `json:"customIcon,omitempty"`
	Visible    bool    `json:"visible"`
	Order      int     `json:"order"`
}

// CloneApps returns a deep copy of apps.
func CloneApps(apps []UserApp) []UserApp {
	if apps == nil {
		return []UserApp{}
	}
	out := make([]UserApp, len(apps))
	for i, app := range apps {
		out[i] = app
		if app.CustomName != nil {
			name := *app.CustomName
			out[i].CustomName = &name
		}
		if app.CustomIcon != nil {
			icon := *app.CustomIcon
			out[i].CustomIcon = &icon
		}
	}
	return out
}
