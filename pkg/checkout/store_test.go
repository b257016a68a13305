package checkout_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rituelsdebene/boutique/pkg/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]checkout.Store{
		"memory": checkout.NewMemoryStore(),
		"file":   checkout.NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json")),
	}

	st := checkout.State{
		Token:         "jwt",
		IDFacturation: 3,
		ModeLivraison: "relais",
		PointRelais:   &checkout.RelayPoint{Num: "020535", CP: "75010", Ville: "PARIS"},
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Load(ctx)
			assert.ErrorIs(t, err, checkout.ErrNoState)

			require.NoError(t, s.Save(ctx, st))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, st, got)

			require.NoError(t, s.Clear(ctx))
			require.NoError(t, s.Clear(ctx), "clearing twice is fine")
			_, err = s.Load(ctx)
			assert.ErrorIs(t, err, checkout.ErrNoState)
		})
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := checkout.NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), checkout.State{Token: "jwt"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := checkout.NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, checkout.ErrNoState)
}
