package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plurald/internal/model"
)

// ReproxyWindow is how long after delivery a message may be reproxied when it
// is no longer the author's latest message in the channel.
const ReproxyWindow = 60 * time.Second

// escape prefixes applied to the raw message body. A single escape skips
// autoproxy for one message; a double escape also clears the latch memory.
const (
	escapeOnce  = `\`
	escapeClear = `\\`
)

// SendResult is the outcome of running a message through the proxy engine.
// When Proxied is false the message is left to be sent as the human author
// and the remaining fields are zero.
type SendResult struct {
	Proxied     bool
	Persona     *model.Persona
	DisplayName string
	Content     string
	ExternalID  string
}

// ProxyMessage runs an inbound message through tag matching and autoproxy,
// and on a resolution delivers it through the executor and records it.
//
// Ordering: the external send happens before the message record is written,
// so a store failure leaves no record pointing at nothing; an orphaned
// delivered message is the lesser harm.
func (s *Service) ProxyMessage(ctx context.Context, userID, channelID, text string) (*SendResult, error) {
	sys, err := s.SystemByOwner(userID)
	if err != nil {
		return nil, err
	}
	defer s.lockSystem(sys.ID)()

	// Re-read under the lock so the recent-list update below does not
	// clobber a concurrent mutation.
	sys, err = s.store.GetSystem(sys.ID)
	if err != nil {
		return nil, fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return nil, fmt.Errorf("system: %w", ErrNotFound)
	}

	// Escapes are text-level conventions handled before any resolution.
	if strings.HasPrefix(text, escapeClear) {
		cfg := sys.Proxy
		cfg.Recent = nil
		if err := s.store.UpdateProxyConfig(sys.ID, cfg); err != nil {
			return nil, fmt.Errorf("clearing latch memory: %w", err)
		}
		s.logger.Debug("latch memory cleared", "system", sys.ID)
		return &SendResult{}, nil
	}
	if strings.HasPrefix(text, escapeOnce) {
		return &SendResult{}, nil
	}

	personas, err := s.store.ListPersonas(sys.ID)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}

	var (
		persona    *model.Persona
		matchedTag string
		content    = text
		explicit   bool
	)
	if m := Match(text, personas); m != nil {
		persona = m.Persona
		matchedTag = m.Tag.String()
		content = m.StrippedText
		explicit = true
	} else {
		layer, err := s.store.PrimaryLayer(sys.ID)
		if err != nil {
			return nil, fmt.Errorf("finding primary layer: %w", err)
		}
		active, err := s.store.ActiveShifts(layer.ID)
		if err != nil {
			return nil, fmt.Errorf("listing active shifts: %w", err)
		}
		persona = ResolveAutoproxy(sys, personas, active)
	}

	if persona == nil {
		// No tag, no autoproxy pick: the message stays with the human
		// author. The common case, not an error.
		return &SendResult{}, nil
	}

	displayName := RenderLayout(sys.Proxy.Layout, persona, sys)
	externalID, err := s.executor.Send(ctx, channelID, displayName, persona.AvatarURL, content)
	if err != nil {
		return nil, fmt.Errorf("delivering proxied message: %w", err)
	}

	now := s.clock.Now()
	rec := &model.MessageRecord{
		ExternalID:   externalID,
		ChannelID:    channelID,
		AuthorUserID: userID,
		SystemID:     sys.ID,
		Persona:      persona.Ref(),
		MatchedTag:   matchedTag,
		Content:      content,
		CreatedAt:    now,
	}
	if err := s.store.CreateMessage(rec); err != nil {
		return nil, fmt.Errorf("recording proxied message: %w", err)
	}

	// Explicit matches always refresh the latch memory. Autoproxy picks
	// refresh it too, except under latch itself: re-pushing the latched
	// persona would make the latch self-reinforcing forever.
	style := sys.Proxy.Style
	if explicit || (style != model.StyleLatch && style != model.StyleLast) {
		cfg := sys.Proxy
		cfg.Recent = pushRecent(cfg.Recent, persona.Ref(), s.recentLimit)
		if err := s.store.UpdateProxyConfig(sys.ID, cfg); err != nil {
			return nil, fmt.Errorf("updating recent proxies: %w", err)
		}
	}

	s.logger.Debug("message proxied", "system", sys.ID, "persona", persona.Ref().Key(), "explicit", explicit)
	return &SendResult{
		Proxied:     true,
		Persona:     persona,
		DisplayName: displayName,
		Content:     content,
		ExternalID:  externalID,
	}, nil
}

// proxyLogName is the sender identity on guild proxy-log entries.
const proxyLogName = "plurald"

// ProxyMessageInGuild is ProxyMessage with the guild's settings applied.
// When the guild has proxying disabled the message is passed through
// untouched, skipping matching entirely. When the guild has a log channel
// configured, each successful proxy posts an audit entry there naming the
// original author. Log delivery is best-effort; a failed entry does not
// undo the proxied message.
func (s *Service) ProxyMessageInGuild(ctx context.Context, userID, guildID, channelID, text string) (*SendResult, error) {
	if guildID == "" {
		return s.ProxyMessage(ctx, userID, channelID, text)
	}

	g, err := s.GuildSettings(guildID)
	if err != nil {
		return nil, err
	}
	if !g.ProxyEnabled {
		return &SendResult{}, nil
	}

	res, err := s.ProxyMessage(ctx, userID, channelID, text)
	if err != nil || !res.Proxied {
		return res, err
	}

	if g.LogChannelID != "" {
		entry := fmt.Sprintf("Message %s in %s proxied as %s (author %s).",
			res.ExternalID, channelID, res.DisplayName, userID)
		if _, err := s.executor.Send(ctx, g.LogChannelID, proxyLogName, "", entry); err != nil {
			s.logger.Warn("proxy log delivery failed", "guild", guildID, "channel", g.LogChannelID, "error", err)
		}
	}
	return res, nil
}

// resolveOwnMessage locates a message record and verifies the caller is its
// original author. An empty externalID targets the caller's latest proxied
// message in the channel.
func (s *Service) resolveOwnMessage(userID, channelID, externalID string) (*model.MessageRecord, error) {
	var rec *model.MessageRecord
	var err error
	if externalID == "" {
		rec, err = s.store.LatestMessageByAuthor(channelID, userID)
	} else {
		rec, err = s.store.GetMessage(externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("finding message: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("proxied message: %w", ErrNotFound)
	}
	if rec.AuthorUserID != userID {
		return nil, fmt.Errorf("message belongs to another user: %w", ErrPermissionDenied)
	}
	return rec, nil
}

// EditMessage replaces the content of a previously proxied message. Author
// only; no time window. The webhook edit happens first, the record update
// second, so a failed external call leaves the record untouched.
func (s *Service) EditMessage(ctx context.Context, userID, channelID, externalID, content string) (*model.MessageRecord, error) {
	rec, err := s.resolveOwnMessage(userID, channelID, externalID)
	if err != nil {
		return nil, err
	}

	newID, err := s.executor.Edit(ctx, rec.ChannelID, rec.ExternalID, EditRequest{Content: &content})
	if err != nil {
		if errors.Is(err, ErrExternalGone) {
			return nil, fmt.Errorf("delivered message: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("editing delivered message: %w", err)
	}

	previousID := rec.ExternalID
	now := s.clock.Now()
	rec.ExternalID = newID
	rec.Content = content
	rec.EditedAt = &now
	if err := s.store.UpdateMessage(previousID, rec); err != nil {
		return nil, fmt.Errorf("updating message record: %w", err)
	}
	return rec, nil
}

// DeleteMessage removes a proxied message. The external delete is
// best-effort: a message that is already gone does not block removing the
// record, which is deleted unconditionally.
func (s *Service) DeleteMessage(ctx context.Context, userID, channelID, externalID string) error {
	rec, err := s.resolveOwnMessage(userID, channelID, externalID)
	if err != nil {
		return err
	}

	if err := s.executor.Delete(ctx, rec.ChannelID, rec.ExternalID); err != nil && !errors.Is(err, ErrExternalGone) {
		return fmt.Errorf("deleting delivered message: %w", err)
	}
	if err := s.store.DeleteMessage(rec.ExternalID); err != nil {
		return fmt.Errorf("deleting message record: %w", err)
	}
	return nil
}

// Reproxy re-attributes a proxied message to a different persona, re-rendering
// its display name through the system layout.
//
// Allowed when the target is the author's single latest proxied message in the
// channel, or when it was delivered within ReproxyWindow; either suffices.
// The dual condition lets users fix "the last thing I sent" even when it is
// slightly old while preventing retroactive edits to arbitrary history.
func (s *Service) Reproxy(ctx context.Context, userID, channelID, externalID, personaName string) (*model.MessageRecord, error) {
	rec, err := s.resolveOwnMessage(userID, channelID, externalID)
	if err != nil {
		return nil, err
	}

	latest, err := s.store.LatestMessageByAuthor(rec.ChannelID, userID)
	if err != nil {
		return nil, fmt.Errorf("finding latest message: %w", err)
	}
	isLatest := latest != nil && latest.ExternalID == rec.ExternalID
	withinWindow := s.clock.Now().Sub(rec.CreatedAt) <= ReproxyWindow
	if !isLatest && !withinWindow {
		return nil, fmt.Errorf("message is too old to reproxy: %w", ErrValidation)
	}

	sys, err := s.store.GetSystem(rec.SystemID)
	if err != nil {
		return nil, fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return nil, fmt.Errorf("system %s: %w", rec.SystemID, ErrNotFound)
	}
	persona, err := s.findPersona(sys.ID, personaName)
	if err != nil {
		return nil, err
	}

	displayName := RenderLayout(sys.Proxy.Layout, persona, sys)
	newID, err := s.executor.Edit(ctx, rec.ChannelID, rec.ExternalID, EditRequest{
		DisplayName: &displayName,
		AvatarURL:   &persona.AvatarURL,
		Content:     &rec.Content,
	})
	if err != nil {
		if errors.Is(err, ErrExternalGone) {
			return nil, fmt.Errorf("delivered message: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("re-delivering message: %w", err)
	}

	previousID := rec.ExternalID
	rec.ExternalID = newID
	rec.Persona = persona.Ref()
	rec.MatchedTag = ""
	if err := s.store.UpdateMessage(previousID, rec); err != nil {
		return nil, fmt.Errorf("updating message record: %w", err)
	}

	s.logger.Debug("message reproxied", "persona", persona.Ref().Key(), "message", rec.ExternalID)
	return rec, nil
}

// LookupMessage returns the record and (possibly deleted) persona behind a
// delivered message id, for "who sent this" queries. A dangling persona ref
// yields a nil Persona; callers display "Unknown".
func (s *Service) LookupMessage(externalID string) (*model.MessageRecord, *model.Persona, error) {
	rec, err := s.store.GetMessage(externalID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding message: %w", err)
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("proxied message: %w", ErrNotFound)
	}
	p, err := s.store.GetPersona(rec.Persona)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving persona: %w", err)
	}
	return rec, p, nil
}
