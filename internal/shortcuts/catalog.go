package shortcuts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"homedeck/models"
)

// CustomAppID is the catalog id for free-form links.
const CustomAppID = "custom"

// Defaults applied to custom entries.
const (
	DefaultCustomName = "Custom Link"
	DefaultCustomIcon = "fa-solid fa-link"
)

// AppDefinition describes a well-known service that shortcuts can point at.
type AppDefinition struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
	DefaultPort int    `json:"defaultPort,omitempty" yaml:"defaultPort"`
	DefaultURL  string `json:"defaultUrl,omitempty" yaml:"defaultUrl"`
	IsCustom    bool   `json:"isCustom,omitempty" yaml:"isCustom"`
	RequiresURL bool   `json:"requiresUrl" yaml:"requiresUrl"`
	Featured    bool   `json:"featured,omitempty" yaml:"featured"`
	Category    string `json:"category,omitempty" yaml:"category"`
}

// Catalog is an ordered, read-only set of app definitions.
type Catalog struct {
	apps  []AppDefinition
	index map[string]int
}

func homelab(id, name, color, description string, port int) AppDefinition {
	return AppDefinition{
		ID:          id,
		Name:        name,
		Icon:        "/assets/apps/" + id + ".svg",
		Color:       color,
		Description: description,
		DefaultPort: port,
		RequiresURL: true,
		Category:    "homelab",
	}
}

func study(id, name, icon, color, description, defaultURL string) AppDefinition {
	return AppDefinition{
		ID:          id,
		Name:        name,
		Icon:        icon,
		Color:       color,
		Description: description,
		DefaultURL:  defaultURL,
		Category:    "ntnu",
	}
}

var builtin = []AppDefinition{
	{ID: "qr_app", Name: "QR Generator", Icon: "fa-solid fa-qrcode", Color: "var(--brand)", Description: "Create QR codes for links and text", Featured: true},
	{ID: "info_screens", Name: "Informize", Icon: "/assets/apps/informize.svg", Color: "#FF8C1A", Description: "Information screen creator and manager", Featured: true, DefaultURL: "https://screens.garberg.wtf"},
	study("blackboard", "Blackboard", "fa-solid fa-book-open-reader", "#0ea5e9", "NTNU Blackboard portal", "https://innsida.ntnu.no/blackboard"),
	study("onedrive_ntnu", "Onedrive", "fa-solid fa-cloud", "#2563eb", "NTNU OneDrive", "https://m365.cloud.microsoft/onedrive/"),
	study("studentweb", "Studentweb", "fa-solid fa-graduation-cap", "#7c3aed", "Course registration & exams", "https://www.ntnu.no/studentweb"),
	study("remnote", "Remnote", "fa-solid fa-brain", "#10b981", "Notes and spaced repetition", "https://www.remnote.com/"),
	study("inspera", "Inspera", "fa-solid fa-pen-to-square", "#f59e0b", "Digital exams", "https://ntnu.inspera.no/"),
	study("tp-timeplan", "TP Timeplan", "fa-solid fa-calendar-days", "#3b82f6", "Course schedules", "https://tp.uio.no/ntnu/timeplan/timeplan.php?type=courseact"),
	homelab("homeassistant", "Home Assistant", "#41BDF5", "Open source home automation", 8123),
	homelab("jellyfin", "Jellyfin", "#00A4DC", "Free software media system", 8096),
	homelab("jellyseerr", "Jellyseerr", "#805EED", "Media request manager for Jellyfin", 5055),
	homelab("plex", "Plex", "#E5A00D", "Stream movies & TV", 32400),
	homelab("radarr", "Radarr", "#FFC230", "Movie collection manager", 7878),
	homelab("sonarr", "Sonarr", "#2EBBF0", "TV series collection manager", 8989),
	homelab("qbittorrent", "qBittorrent", "#2E7DC5", "BitTorrent client", 8080),
	homelab("prowlarr", "Prowlarr", "#C79553", "Indexer manager for *arr apps", 9696),
	homelab("overseerr", "Overseerr", "#805EED", "Media request manager for Plex", 5055),
	homelab("portainer", "Portainer", "#13BEF9", "Container management", 9000),
	homelab("proxmox", "Proxmox", "#E57000", "Virtualization platform", 8006),
	homelab("pihole", "Pi-hole", "#F60D1A", "Network-wide ad blocking", 80),
	homelab("adguard", "AdGuard Home", "#68BC71", "Network-wide ad blocking", 3000),
	homelab("nextcloud", "Nextcloud", "#0082C9", "Self-hosted cloud storage", 443),
	homelab("syncthing", "Syncthing", "#0891D1", "Continuous file synchronization", 8384),
	{ID: CustomAppID, Name: DefaultCustomName, Icon: DefaultCustomIcon, Color: "var(--brand)", Description: "Add a custom link to any service", IsCustom: true, RequiresURL: true},
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates apps and builds a catalog from them.
func NewCatalog(apps []AppDefinition) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(apps))}
	for _, app := range apps {
		if err := c.put(app); err != nil {
			return nil, err
		}
	}
	if _, ok := c.index[CustomAppID]; !ok {
		return nil, fmt.Errorf("catalog: missing %q entry", CustomAppID)
	}
	return c, nil
}

func (c *Catalog) put(app AppDefinition) error {
	app.ID = strings.TrimSpace(app.ID)
	if app.ID == "" {
		return fmt.Errorf("catalog: entry without id")
	}
	if strings.TrimSpace(app.Name) == "" {
		return fmt.Errorf("catalog: entry %q has no name", app.ID)
	}
	if app.DefaultPort < 0 || app.DefaultPort > 65535 {
		return fmt.Errorf("catalog: entry %q has invalid port %d", app.ID, app.DefaultPort)
	}
	if app.DefaultURL != "" && !ValidateURL(app.DefaultURL) {
		return fmt.Errorf("catalog: entry %q has invalid default url %q", app.ID, app.DefaultURL)
	}
	if i, ok := c.index[app.ID]; ok {
		c.apps[i] = app
		return nil
	}
	c.index[app.ID] = len(c.apps)
	c.apps = append(c.apps, app)
	return nil
}

type catalogFile struct {
	Apps []AppDefinition `yaml:"apps"`
}

// ParseCatalogExtension decodes a YAML document of the form `apps: [...]`.
func ParseCatalogExtension(data []byte) ([]AppDefinition, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	return file.Apps, nil
}

// LoadCatalog returns the built-in catalog extended by the YAML file at path.
// Entries whose id matches a built-in replace it; new ids are appended. An
// empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	extra, err := ParseCatalogExtension(data)
	if err != nil {
		return nil, err
	}
	apps := make([]AppDefinition, 0, len(builtin)+len(extra))
	apps = append(apps, builtin...)
	apps = append(apps, extra...)
	return NewCatalog(apps)
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []AppDefinition {
	out := make([]AppDefinition, len(c.apps))
	copy(out, c.apps)
	return out
}

// ByID looks up a definition.
func (c *Catalog) ByID(id string) (AppDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return AppDefinition{}, false
	}
	return c.apps[i], true
}

// Available lists the definitions that can still be added given the app ids
// already on a list. Custom links are always available, as is the app of
// the entry being edited.
func (c *Catalog) Available(existing []string, editing string) []AppDefinition {
	taken := make(map[string]bool, len(existing))
	for _, id := range existing {
		taken[id] = true
	}
	var out []AppDefinition
	for _, app := range c.apps {
		if app.IsCustom || !taken[app.ID] || app.ID == editing {
			out = append(out, app)
		}
	}
	return out
}

// DisplayInfo is what a shortcut tile renders.
type DisplayInfo struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
	IsImage bool   `json:"isImage"`
	Href    string `json:"href"`
	Label   string `json:"label"`
}

// Display resolves the tile details for app. Unknown and custom app ids use
// the entry's own name and icon.
func (c *Catalog) Display(app models.UserApp) DisplayInfo {
	info := DisplayInfo{Href: EnsureProtocol(app.URL), Label: DisplayURL(app.URL)}
	if def, ok := c.ByID(app.AppID); ok && !def.IsCustom {
		info.Name = def.Name
		info.Icon = def.Icon
		info.Color = def.Color
		info.IsImage = strings.HasPrefix(def.Icon, "/")
		return info
	}
	info.Name = DefaultCustomName
	if app.CustomName != nil && *app.CustomName != "" {
		info.Name = *app.CustomName
	}
	info.Icon = DefaultCustomIcon
	if app.CustomIcon != nil && *app.CustomIcon != "" {
		info.Icon = *app.CustomIcon
	}
	info.Color = "var(--brand)"
	return info
}
