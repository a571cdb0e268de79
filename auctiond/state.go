package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/escrowauction/core"
)

// persistedState is the on-disk form of the daemon: the registry and ledger snapshots
// taken under the same exclusive lock.
type persistedState struct {
	Escrow   core.Account `cbor:"escrow"`
	Registry []byte       `cbor:"registry"`
	World    []byte       `cbor:"world"`
}

// saveState writes a snapshot to cfg.StateFile through a temp file and rename.
func (s *Server) saveState() error {
	if s.cfg.StateFile == "" {
		return nil
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	registry, err := s.engine.Registry().Snapshot()
	if err != nil {
		return err
	}
	world, err := s.world.Snapshot()
	if err != nil {
		return err
	}
	data, err := cbor.Marshal(persistedState{Escrow: s.cfg.Escrow, Registry: registry, World: world})
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cfg.StateFile), filepath.Base(s.cfg.StateFile)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARNING: Failed to remove temp state file: %v", err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cfg.StateFile); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// loadState restores registry and ledger from cfg.StateFile. A missing file is a fresh start.
func (s *Server) loadState(registry *core.Registry) error {
	if s.cfg.StateFile == "" {
		return nil
	}

	data, err := os.ReadFile(s.cfg.StateFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("INFO: No state file at %s, starting empty", s.cfg.StateFile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state persistedState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode state file: %w", err)
	}
	if state.Escrow != s.cfg.Escrow {
		return fmt.Errorf("state file belongs to escrow %s, configured %s", state.Escrow, s.cfg.Escrow)
	}
	if err := registry.Restore(state.Registry); err != nil {
		return err
	}
	if err := s.world.Restore(state.World); err != nil {
		return err
	}

	log.Printf("INFO: Restored %d auctions from %s", len(registry.List()), s.cfg.StateFile)
	return nil
}
