package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

func TestLoadPCRsFromFile(t *testing.T) {
	sets, err := LoadPCRsFromFile(writePCRConfig(t))
	assert.NoError(t, err)
	check.Equal(t, 2, len(sets))
	check.Equal(t, "abc123", sets[1].CommitHash)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	assert.NoError(t, os.WriteFile(empty, []byte(`{"pcr_sets":[]}`), 0o600))
	_, err = LoadPCRsFromFile(empty)
	check.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	assert.NoError(t, os.WriteFile(broken, []byte(`{`), 0o600))
	_, err = LoadPCRsFromFile(broken)
	check.Error(t, err)

	_, err = LoadPCRsFromFile(filepath.Join(dir, "missing.json"))
	check.Error(t, err)
}

func TestDefaultPCRConfig(t *testing.T) {
	t.Setenv(PCRConfigEnv, "")
	sets, err := LoadPCRsFromFile(DefaultPCRConfigPath())
	assert.NoError(t, err)
	check.True(t, len(sets) > 0)

	t.Setenv(PCRConfigEnv, "/etc/auction/pcrs.json")
	check.Equal(t, "/etc/auction/pcrs.json", DefaultPCRConfigPath())
}

func TestValidatePCRs(t *testing.T) {
	known := []PCRSet{
		{PCR0: "a0", PCR1: "a1", PCR2: "a2"},
		{PCR0: "b0", PCR1: "b1", PCR2: "b2"},
	}

	match, idx := ValidatePCRs(auctionapi.PCRs{ImageFileHash: "b0", KernelHash: "b1", ApplicationHash: "b2"}, known)
	check.True(t, match)
	check.Equal(t, 1, idx)

	match, idx = ValidatePCRs(auctionapi.PCRs{ImageFileHash: "a0", KernelHash: "a1", ApplicationHash: "b2"}, known)
	check.False(t, match)
	check.Equal(t, -1, idx)
}
