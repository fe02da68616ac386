// Package export writes and restores whole-system archives. Plural system
// data is sensitive, so archives can be encrypted with an age passphrase.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"filippo.io/age"

	"plurald/internal/model"
	"plurald/internal/proxy"
)

// ArchiveVersion identifies the archive format; bumped on breaking changes.
const ArchiveVersion = 1

// Archive is the on-disk export format: one system with its personas and
// full front history. Message records are not exported; they belong to the
// delivering channel, not the system.
type Archive struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	System     *model.System  `json:"system"`
	Personas   []*model.Persona `json:"personas"`
	Layers     []LayerArchive `json:"layers"`
}

// LayerArchive is one front layer with all its shifts.
type LayerArchive struct {
	Layer  *model.Layer   `json:"layer"`
	Shifts []*model.Shift `json:"shifts"`
}

// Write exports a system to w as JSON. A non-empty passphrase encrypts the
// archive with age's scrypt-based passphrase encryption.
func Write(st proxy.Store, systemID string, w io.Writer, passphrase string) error {
	sys, err := st.GetSystem(systemID)
	if err != nil {
		return fmt.Errorf("finding system: %w", err)
	}
	if sys == nil {
		return fmt.Errorf("system %s: %w", systemID, proxy.ErrNotFound)
	}

	personas, err := st.ListPersonas(systemID)
	if err != nil {
		return fmt.Errorf("listing personas: %w", err)
	}
	layers, err := st.ListLayers(systemID)
	if err != nil {
		return fmt.Errorf("listing layers: %w", err)
	}

	archive := Archive{
		Version:    ArchiveVersion,
		ExportedAt: time.Now().UTC(),
		System:     sys,
		Personas:   personas,
	}
	for _, l := range layers {
		shifts, err := st.ListShifts(l.ID)
		if err != nil {
			return fmt.Errorf("listing shifts for layer %s: %w", l.ID, err)
		}
		archive.Layers = append(archive.Layers, LayerArchive{Layer: l, Shifts: shifts})
	}

	out := w
	var encWriter io.WriteCloser
	if passphrase != "" {
		recipient, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return fmt.Errorf("creating scrypt recipient: %w", err)
		}
		encWriter, err = age.Encrypt(w, recipient)
		if err != nil {
			return fmt.Errorf("creating encrypted writer: %w", err)
		}
		out = encWriter
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(archive); err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}

	if encWriter != nil {
		if err := encWriter.Close(); err != nil {
			return fmt.Errorf("finalizing encrypted archive: %w", err)
		}
	}
	return nil
}

// Read restores an archived system into the store under ownerUserID, who
// must not already have a system. A non-empty passphrase decrypts the
// archive first. Returns the restored system.
func Read(st proxy.Store, r io.Reader, ownerUserID, passphrase string) (*model.System, error) {
	in := r
	if passphrase != "" {
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		in, err = age.Decrypt(r, identity)
		if err != nil {
			return nil, fmt.Errorf("decrypting archive: %w", err)
		}
	}

	var archive Archive
	if err := json.NewDecoder(in).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	if archive.Version != ArchiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", archive.Version)
	}
	if archive.System == nil {
		return nil, fmt.Errorf("archive has no system")
	}

	existing, err := st.FindSystemByOwner(ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("checking for existing system: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("owner already has a system: %w", proxy.ErrValidation)
	}

	archive.System.OwnerUserID = ownerUserID
	if err := st.CreateSystem(archive.System); err != nil {
		return nil, fmt.Errorf("restoring system: %w", err)
	}
	for _, p := range archive.Personas {
		if err := st.CreatePersona(p); err != nil {
			return nil, fmt.Errorf("restoring persona %s: %w", p.Name, err)
		}
	}

	// CreateSystem already made a primary layer; archived shifts from the
	// archived primary layer land there. Extra layers are recreated as-is.
	primary, err := st.PrimaryLayer(archive.System.ID)
	if err != nil {
		return nil, fmt.Errorf("finding primary layer: %w", err)
	}
	for _, la := range archive.Layers {
		layerID := la.Layer.ID
		if la.Layer.Primary {
			layerID = primary.ID
		} else {
			if err := st.CreateLayer(la.Layer); err != nil {
				return nil, fmt.Errorf("restoring layer %s: %w", la.Layer.Name, err)
			}
		}
		for _, sh := range la.Shifts {
			restored := *sh
			restored.LayerID = layerID
			restored.Statuses = nil
			if err := st.CreateShift(&restored); err != nil {
				return nil, fmt.Errorf("restoring shift %s: %w", sh.ID, err)
			}
			if sh.EndTime != nil {
				if err := st.EndShift(sh.ID, *sh.EndTime); err != nil {
					return nil, fmt.Errorf("closing restored shift %s: %w", sh.ID, err)
				}
			}
			for i := range sh.Statuses {
				stt := sh.Statuses[i]
				if err := st.AddStatus(&stt); err != nil {
					return nil, fmt.Errorf("restoring status %s: %w", stt.ID, err)
				}
				if stt.EndTime != nil {
					if err := st.EndStatus(stt.ID, *stt.EndTime); err != nil {
						return nil, fmt.Errorf("closing restored status %s: %w", stt.ID, err)
					}
				}
			}
		}
	}
	return archive.System, nil
}
