// Package shortcuts manages the ordered list of shortcut entries stored on a
// profile.
package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"homedeck/internal/access"
	"homedeck/internal/identity"
	applog "homedeck/internal/log"
	"homedeck/models"
)

var (
	ErrNotFound      = errors.New("shortcuts: entry not found")
	ErrInvalidURL    = errors.New("shortcuts: invalid url")
	ErrUnknownApp    = errors.New("shortcuts: unknown app")
	ErrOrderMismatch = errors.New("shortcuts: reorder must list every entry exactly once")
	// ErrNoTarget is returned when an edit has no target profile.
	ErrNoTarget = access.ErrNoTarget
)

// Store reads and replaces the full shortcut list of a profile.
type Store interface {
	LoadApps(ctx context.Context, profileID string) ([]models.UserApp, error)
	SaveApps(ctx context.Context, profileID string, apps []models.UserApp) error
}

// Manager hands out collections bound to one profile.
type Manager struct {
	store   Store
	catalog *Catalog
	newID   func() string
}

// NewManager returns a Manager persisting through store.
func NewManager(store Store, catalog *Catalog) *Manager {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Manager{store: store, catalog: catalog, newID: uuid.NewString}
}

// Catalog returns the catalog used to validate app ids.
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// EditOwnShortcuts returns the caller's own collection.
func (m *Manager) EditOwnShortcuts(caller identity.Identity) *Collection {
	return &Collection{manager: m, targetID: strings.TrimSpace(caller.ID)}
}

// EditOtherIdentityShortcuts returns the collection of targetID for an admin
// caller. It never falls back to the caller's own profile.
func (m *Manager) EditOtherIdentityShortcuts(caller access.Principal, targetID string) (*Collection, error) {
	targetID = strings.TrimSpace(targetID)
	if err := access.AuthorizeShortcutEdit(caller, targetID); err != nil {
		return nil, err
	}
	return &Collection{manager: m, targetID: targetID}, nil
}

// Input describes an entry to add or update.
type Input struct {
	ID         string  `json:"id"`
	AppID      string  `json:"appId"`
	URL        string  `json:"url"`
	CustomName *string `json:"customName"`
	CustomIcon *string `json:"customIcon"`
	Visible    *bool   `json:"visible"`
}

// Collection is the shortcut list of exactly one profile. Every mutation
// reads the current list, edits a copy and persists the full replacement.
type Collection struct {
	manager  *Manager
	targetID string
}

// TargetID is the profile the collection writes to.
func (c *Collection) TargetID() string {
	return c.targetID
}

func (c *Collection) load(ctx context.Context) ([]models.UserApp, error) {
	if c.targetID == "" {
		return nil, ErrNoTarget
	}
	apps, err := c.manager.store.LoadApps(ctx, c.targetID)
	if err != nil {
		return nil, fmt.Errorf("load shortcuts: %w", err)
	}
	return sortByOrder(models.CloneApps(apps)), nil
}

func (c *Collection) persist(ctx context.Context, apps []models.UserApp) error {
	if err := c.manager.store.SaveApps(ctx, c.targetID, apps); err != nil {
		return fmt.Errorf("save shortcuts: %w", err)
	}
	return nil
}

// List returns the entries in display order.
func (c *Collection) List(ctx context.Context) ([]models.UserApp, error) {
	return c.load(ctx)
}

// Add appends an entry and returns it as stored.
func (c *Collection) Add(ctx context.Context, in Input) (models.UserApp, error) {
	apps, err := c.load(ctx)
	if err != nil {
		return models.UserApp{}, err
	}
	app, err := c.manager.build(in, models.UserApp{Visible: true})
	if err != nil {
		return models.UserApp{}, err
	}
	if app.ID == "" || indexOf(apps, app.ID) >= 0 {
		app.ID = c.manager.newID()
	}
	apps = appendApp(apps, app)
	if err := c.persist(ctx, apps); err != nil {
		return models.UserApp{}, err
	}
	applog.Debug(ctx, "shortcut added", "profile", c.targetID, "app", app.AppID, "id", app.ID)
	return apps[len(apps)-1], nil
}

// Update replaces the entry with in.ID. Its position is kept.
func (c *Collection) Update(ctx context.Context, in Input) (models.UserApp, error) {
	apps, err := c.load(ctx)
	if err != nil {
		return models.UserApp{}, err
	}
	i := indexOf(apps, in.ID)
	if in.ID == "" || i < 0 {
		applog.Warn(ctx, "shortcut not found for update", "profile", c.targetID, "id", in.ID)
		return models.UserApp{}, ErrNotFound
	}
	app, err := c.manager.build(in, apps[i])
	if err != nil {
		return models.UserApp{}, err
	}
	app.ID = apps[i].ID
	app.Order = apps[i].Order
	apps[i] = app
	if err := c.persist(ctx, apps); err != nil {
		return models.UserApp{}, err
	}
	return app, nil
}

// Remove deletes the entry with id and closes the gap in the order.
func (c *Collection) Remove(ctx context.Context, id string) error {
	apps, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, ok := removeApp(apps, id)
	if !ok {
		applog.Warn(ctx, "shortcut not found for removal", "profile", c.targetID, "id", id)
		return ErrNotFound
	}
	return c.persist(ctx, next)
}

// Reorder arranges the entries in the order of ids, which must name every
// entry exactly once.
func (c *Collection) Reorder(ctx context.Context, ids []string) ([]models.UserApp, error) {
	apps, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	next, err := reorderApps(apps, ids)
	if err != nil {
		return nil, err
	}
	if err := c.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// build validates in and merges it over base.
func (m *Manager) build(in Input, base models.UserApp) (models.UserApp, error) {
	app := base
	app.ID = strings.TrimSpace(in.ID)
	app.AppID = strings.TrimSpace(in.AppID)
	if app.AppID == "" {
		app.AppID = base.AppID
	}
	def, ok := m.catalog.ByID(app.AppID)
	if !ok {
		return models.UserApp{}, fmt.Errorf("%w: %q", ErrUnknownApp, app.AppID)
	}

	app.URL = strings.TrimSpace(in.URL)
	if app.URL == "" {
		app.URL = base.URL
	}
	if app.URL == "" {
		app.URL = def.DefaultURL
	}
	if app.URL == "" && (def.RequiresURL || def.IsCustom) {
		return models.UserApp{}, fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	if app.URL != "" && !ValidateURL(app.URL) {
		return models.UserApp{}, fmt.Errorf("%w: %q", ErrInvalidURL, app.URL)
	}

	if in.Visible != nil {
		app.Visible = *in.Visible
	}

	if def.IsCustom {
		name := pick(in.CustomName, base.CustomName, DefaultCustomName)
		icon := pick(in.CustomIcon, base.CustomIcon, DefaultCustomIcon)
		app.CustomName = &name
		app.CustomIcon = &icon
	} else {
		app.CustomName = nil
		app.CustomIcon = nil
	}
	return app, nil
}

// pick returns the first non-blank of value and previous, else fallback.
func pick(value, previous *string, fallback string) string {
	for _, v := range []*string{value, previous} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return fallback
}

func sortByOrder(apps []models.UserApp) []models.UserApp {
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Order < apps[j].Order })
	return apps
}

func indexOf(apps []models.UserApp, id string) int {
	for i, app := range apps {
		if app.ID == id {
			return i
		}
	}
	return -1
}

func appendApp(apps []models.UserApp, app models.UserApp) []models.UserApp {
	app.Order = len(apps)
	return append(apps, app)
}

func removeApp(apps []models.UserApp, id string) ([]models.UserApp, bool) {
	i := indexOf(apps, id)
	if id == "" || i < 0 {
		return apps, false
	}
	next := make([]models.UserApp, 0, len(apps)-1)
	next = append(next, apps[:i]...)
	next = append(next, apps[i+1:]...)
	return reindex(next), true
}

func reorderApps(apps []models.UserApp, ids []string) ([]models.UserApp, error) {
	if len(ids) != len(apps) {
		return nil, ErrOrderMismatch
	}
	byID := make(map[string]models.UserApp, len(apps))
	for _, app := range apps {
		byID[app.ID] = app
	}
	next := make([]models.UserApp, 0, len(ids))
	for _, id := range ids {
		app, ok := byID[id]
		if !ok {
			return nil, ErrOrderMismatch
		}
		delete(byID, id)
		next = append(next, app)
	}
	return reindex(next), nil
}

func reindex(apps []models.UserApp) []models.UserApp {
	for i := range apps {
		apps[i].Order = i
	}
	return apps
}
