package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"plurald/internal/cache"
	"plurald/internal/config"
	"plurald/internal/export"
	"plurald/internal/media"
	"plurald/internal/model"
	"plurald/internal/proxy"
	"plurald/internal/store"
	"plurald/internal/webhook"
)

// App is the application layer between the CLI and the proxy service.
// It constructs all dependencies from config, resolves the acting user's
// system, and manages resource lifecycle on Close.
type App struct {
	cfg      *config.Config
	store    proxy.Store
	cache    cache.Cache
	executor proxy.Executor
	media    media.Store
	service  *proxy.Service
	logger   proxy.Logger
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Proxy", "Switch").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	c, err := cache.NewCacheFromConfig(cfg.Cache)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		c.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	plog := &slogAdapter{l: logger}

	exec, err := webhook.NewExecutorFromConfig(cfg.Webhook, cfg.Cache, c, plog)
	if err != nil {
		st.Close()
		c.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating webhook executor: %w", err)
	}

	med, err := media.NewStoreFromConfig(context.Background(), cfg.Media)
	if err != nil {
		st.Close()
		c.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating media store: %w", err)
	}

	svc := proxy.NewService(st, exec, plog, proxy.RealClock{}, proxy.UUIDGenerator{})
	if cfg.RecentLimit > 0 {
		svc.SetRecentLimit(cfg.RecentLimit)
	}

	return &App{
		cfg:      cfg,
		store:    st,
		cache:    c,
		executor: exec,
		media:    med,
		service:  svc,
		logger:   plog,
		logFile:  logFile,
	}, nil
}

// Service exposes the underlying proxy service for the HTTP API.
func (a *App) Service() *proxy.Service { return a.service }

// Media exposes the media store for the HTTP API.
func (a *App) Media() media.Store { return a.media }

// Config returns the config the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Logger exposes the structured logger for long-running commands.
func (a *App) Logger() proxy.Logger { return a.logger }

// system resolves the acting user's system, or ErrNotFound if none exists.
func (a *App) system() (*model.System, error) {
	sys, err := a.service.SystemByOwner(a.cfg.UserID)
	if err != nil {
		return nil, err
	}
	return sys, nil
}

// CreateSystem registers a system for the acting user.
func (a *App) CreateSystem(name string) (*model.System, error) {
	return a.service.CreateSystem(a.cfg.UserID, name)
}

// ShowSystem returns the acting user's system.
func (a *App) ShowSystem() (*model.System, error) {
	return a.system()
}

// DeleteSystem removes the acting user's system and all its data.
func (a *App) DeleteSystem(confirm bool) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.DeleteSystem(sys.ID, confirm)
}

// AddMember registers a new persona under the acting user's system.
func (a *App) AddMember(kind, name string, tagPatterns []string) (*model.Persona, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.CreatePersona(sys.ID, model.PersonaKind(kind), name, tagPatterns)
}

// ListMembers returns all personas of the acting user's system.
func (a *App) ListMembers() ([]*model.Persona, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.ListPersonas(sys.ID)
}

// UpdateMember applies a partial update to a persona by name.
func (a *App) UpdateMember(name string, upd proxy.PersonaUpdate) (*model.Persona, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.ModifyPersona(sys.ID, name, upd)
}

// SetMemberAvatar uploads an image file as a persona's avatar and points
// the persona at its public URL, which is returned.
func (a *App) SetMemberAvatar(ctx context.Context, name, path string) (string, error) {
	sys, err := a.system()
	if err != nil {
		return "", err
	}
	p, err := a.service.Persona(sys.ID, name)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening avatar file: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("reading avatar file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := media.AvatarKey(p.ID)
	if err := a.media.Put(ctx, key, f, fi.Size(), contentType); err != nil {
		return "", fmt.Errorf("storing avatar: %w", err)
	}

	url := a.media.URL(key)
	if _, err := a.service.ModifyPersona(sys.ID, name, proxy.PersonaUpdate{AvatarURL: &url}); err != nil {
		return "", err
	}
	return url, nil
}

// RemoveMember deletes a persona by name.
func (a *App) RemoveMember(name string) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.DeletePersona(sys.ID, name)
}

// SetAutoproxy sets the system's autoproxy style
// ("off", "front", "latch", or a persona name).
func (a *App) SetAutoproxy(style string) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.SetAutoproxyStyle(sys.ID, style)
}

// SetLayout sets the system's display name layout template.
func (a *App) SetLayout(layout string) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.SetLayout(sys.ID, layout)
}

// Proxy runs a raw message through tag matching and autoproxy, delivering
// the result through the webhook executor when a persona is resolved.
// A non-empty guildID applies that guild's proxy settings first.
func (a *App) Proxy(ctx context.Context, guildID, channelID, text string) (*proxy.SendResult, error) {
	return a.service.ProxyMessageInGuild(ctx, a.cfg.UserID, guildID, channelID, text)
}

// GuildSettings returns a guild's proxy settings.
func (a *App) GuildSettings(guildID string) (*model.Guild, error) {
	return a.service.GuildSettings(guildID)
}

// SetGuildSettings creates or replaces a guild's proxy settings.
func (a *App) SetGuildSettings(g *model.Guild) error {
	return a.service.SetGuildSettings(g)
}

// Switch closes the current front and opens shifts for the named personas.
func (a *App) Switch(names []string) (*proxy.SwitchResult, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.Switch(sys.ID, names)
}

// SwitchOut closes all active shifts, leaving nobody fronting.
func (a *App) SwitchOut() (*proxy.SwitchResult, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.SwitchOut(sys.ID)
}

// Toggle flips front membership for each named persona.
func (a *App) Toggle(names []string) (*proxy.SwitchResult, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.Toggle(sys.ID, names)
}

// Fronters returns the currently fronting personas.
func (a *App) Fronters() ([]*proxy.Fronter, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.Fronters(sys.ID)
}

// AddFronter adds a persona to the current front without closing others.
func (a *App) AddFronter(name string) (*model.Shift, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.AddFronter(sys.ID, name)
}

// RemoveFronter ends a single persona's active shift.
func (a *App) RemoveFronter(name string) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.RemoveFronter(sys.ID, name)
}

// SetStatus attaches a status note to a fronting persona's active shift.
func (a *App) SetStatus(name, text string, visible bool) (*model.Status, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.SetStatus(sys.ID, name, text, visible)
}

// History returns the system's switch history, most recent first.
func (a *App) History() ([]*model.Shift, error) {
	sys, err := a.system()
	if err != nil {
		return nil, err
	}
	return a.service.History(sys.ID)
}

// DeleteLatestHistory removes the most recent batch of shifts.
func (a *App) DeleteLatestHistory(confirm bool) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.DeleteLatestHistory(sys.ID, confirm)
}

// DeleteAllHistory clears the full switch history.
func (a *App) DeleteAllHistory(confirm bool) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return a.service.DeleteAllHistory(sys.ID, confirm)
}

// EditMessage edits a previously proxied message. An empty externalID
// targets the acting user's latest proxied message in the channel.
func (a *App) EditMessage(ctx context.Context, channelID, externalID, content string) (*model.MessageRecord, error) {
	return a.service.EditMessage(ctx, a.cfg.UserID, channelID, externalID, content)
}

// DeleteMessage deletes a previously proxied message.
func (a *App) DeleteMessage(ctx context.Context, channelID, externalID string) error {
	return a.service.DeleteMessage(ctx, a.cfg.UserID, channelID, externalID)
}

// Reproxy re-attributes a recent proxied message to another persona.
func (a *App) Reproxy(ctx context.Context, channelID, externalID, personaName string) (*model.MessageRecord, error) {
	return a.service.Reproxy(ctx, a.cfg.UserID, channelID, externalID, personaName)
}

// LookupMessage returns the stored record and persona for a proxied message.
func (a *App) LookupMessage(externalID string) (*model.MessageRecord, *model.Persona, error) {
	return a.service.LookupMessage(externalID)
}

// Export writes the acting user's system to w as a JSON archive,
// encrypted when passphrase is non-empty.
func (a *App) Export(w io.Writer, passphrase string) error {
	sys, err := a.system()
	if err != nil {
		return err
	}
	return export.Write(a.store, sys.ID, w, passphrase)
}

// Import restores a system archive for the acting user.
// It fails if the user already has a system.
func (a *App) Import(r io.Reader, passphrase string) (*model.System, error) {
	return export.Read(a.store, r, a.cfg.UserID, passphrase)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if err := a.cache.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing cache: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
