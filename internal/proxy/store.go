package proxy

import (
	"time"

	"plurald/internal/model"
)

// Store provides persistence for systems, personas, the front ledger, message
// records, and guild settings. Lookup methods return (nil, nil) when the
// record does not exist; the service layer translates that to ErrNotFound
// where absence is an error.
type Store interface {
	// System operations

	// CreateSystem persists a new system together with its primary layer.
	CreateSystem(sys *model.System) error

	// GetSystem returns a system by id.
	GetSystem(id string) (*model.System, error)

	// FindSystemByOwner returns the system owned by the given user id.
	FindSystemByOwner(userID string) (*model.System, error)

	// UpdateProxyConfig replaces a system's proxy configuration (style,
	// layout, recent list) in one write.
	UpdateProxyConfig(systemID string, cfg model.ProxyConfig) error

	// DeleteSystem removes a system and cascades to its personas, layers,
	// and shifts. Message records are kept and degrade to dangling refs.
	DeleteSystem(id string) error

	// Persona operations

	// CreatePersona persists a new persona.
	CreatePersona(p *model.Persona) error

	// GetPersona returns a persona by ref.
	GetPersona(ref model.PersonaRef) (*model.Persona, error)

	// FindPersonaByName returns the persona in a system whose indexable name
	// matches (case-insensitive), across all kinds. Kind iteration order is
	// alter, state, group; within a kind, creation order.
	FindPersonaByName(systemID, name string) (*model.Persona, error)

	// ListPersonas returns all personas of a system in creation order,
	// alters first, then states, then groups.
	ListPersonas(systemID string) ([]*model.Persona, error)

	// UpdatePersona replaces a persona's mutable fields.
	UpdatePersona(p *model.Persona) error

	// DeletePersona removes a persona. Its historical shifts and message
	// records are kept with dangling refs.
	DeletePersona(ref model.PersonaRef) error

	// Front operations

	// PrimaryLayer returns the system's primary layer, creating it if the
	// front has been reset or never initialized.
	PrimaryLayer(systemID string) (*model.Layer, error)

	// ListLayers returns all layers of a system.
	ListLayers(systemID string) ([]*model.Layer, error)

	// CreateLayer adds a non-primary layer to a system.
	CreateLayer(l *model.Layer) error

	// ActiveShifts returns the open shifts of a layer in start order.
	ActiveShifts(layerID string) ([]*model.Shift, error)

	// ListShifts returns all shifts of a layer, including closed ones,
	// in start order, with statuses attached.
	ListShifts(layerID string) ([]*model.Shift, error)

	// CreateShift appends a shift to its layer.
	CreateShift(sh *model.Shift) error

	// EndShift closes a shift at the given time and closes its open status
	// span, if any. Closing an already-closed shift is a no-op.
	EndShift(shiftID string, t time.Time) error

	// AddStatus appends a status span to a shift.
	AddStatus(st *model.Status) error

	// EndStatus closes a status span at the given time.
	EndStatus(statusID string, t time.Time) error

	// ClearLayerShifts deletes all shift records of a layer. This discards
	// history, it does not merely end shifts.
	ClearLayerShifts(layerID string) error

	// ResetFront deletes all layers and shifts of a system and recreates a
	// single empty primary layer.
	ResetFront(systemID string) error

	// Message operations

	// CreateMessage persists a message record.
	CreateMessage(m *model.MessageRecord) error

	// GetMessage returns a message record by its external (webhook) id.
	GetMessage(externalID string) (*model.MessageRecord, error)

	// LatestMessageByAuthor returns the newest message record sent by the
	// given author in the given channel.
	LatestMessageByAuthor(channelID, authorUserID string) (*model.MessageRecord, error)

	// UpdateMessage replaces a message record's mutable fields, keyed by the
	// previous external id (the id itself may change on reproxy).
	UpdateMessage(previousExternalID string, m *model.MessageRecord) error

	// DeleteMessage removes a message record.
	DeleteMessage(externalID string) error

	// Guild operations

	// GetGuild returns guild settings by guild id.
	GetGuild(id string) (*model.Guild, error)

	// UpsertGuild creates or replaces guild settings.
	UpsertGuild(g *model.Guild) error

	// Close closes the underlying storage.
	Close() error
}
