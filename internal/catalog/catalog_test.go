package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"skhpc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModels() []models.GpuModel {
	return []models.GpuModel{
		{
			ID:          "RTX-4090",
			Name:        "NVIDIA GeForce RTX 4090",
			Memory:      "24GB",
			PricePer30m: 7.5,
			CudaCores:   16384,
			InstanceIDs: []string{"RTX-4090-01", "RTX-4090-02"},
		},
		{
			ID:          "H100",
			Name:        "NVIDIA H100 Tensor Core",
			Memory:      "80GB",
			PricePer30m: 25,
			CudaCores:   16896,
			InstanceIDs: []string{"H100-01"},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		c, err := New(testModels())
		require.NoError(t, err)

		assert.Len(t, c.Models(), 2)
		assert.Equal(t, 3, c.TotalInstances())

		m, ok := c.Get("RTX-4090")
		require.True(t, ok)
		assert.Equal(t, 24.0, m.MemoryGB)

		_, ok = c.Get("rtx-4090")
		assert.False(t, ok, "model lookup is exact")
	})

	t.Run("InstanceOwnership", func(t *testing.T) {
		c, err := New(testModels())
		require.NoError(t, err)

		assert.True(t, c.HasInstance("RTX-4090", "RTX-4090-02"))
		assert.False(t, c.HasInstance("H100", "RTX-4090-02"))

		owner, ok := c.ModelForInstance("H100-01")
		require.True(t, ok)
		assert.Equal(t, "H100", owner)

		_, ok = c.ModelForInstance("H100-99")
		assert.False(t, ok)
	})

	t.Run("EmptyID", func(t *testing.T) {
		bad := testModels()
		bad[0].ID = ""
		_, err := New(bad)
		assert.Error(t, err)
	})

	t.Run("DuplicateModelID", func(t *testing.T) {
		bad := testModels()
		bad[1].ID = bad[0].ID
		_, err := New(bad)
		assert.ErrorContains(t, err, "duplicate gpu model id")
	})

	t.Run("NoInstances", func(t *testing.T) {
		bad := testModels()
		bad[1].InstanceIDs = nil
		_, err := New(bad)
		assert.ErrorContains(t, err, "no instances")
	})

	t.Run("DuplicateInstanceAcrossModels", func(t *testing.T) {
		bad := testModels()
		bad[1].InstanceIDs = []string{"RTX-4090-01"}
		_, err := New(bad)
		assert.ErrorContains(t, err, "duplicated between models")
	})

	t.Run("EmptyInventory", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("ParsesYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "inventory.yaml")
		data := `gpu_models:
  - id: RTX-4090
    name: NVIDIA GeForce RTX 4090
    memory: 24GB
    price_per_30min: 7.50
    cuda_cores: 16384
    description: Flagship consumer GPU
    instances:
      - RTX-4090-01
      - RTX-4090-02
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		c, err := Load(path)
		require.NoError(t, err)

		m, ok := c.Get("RTX-4090")
		require.True(t, ok)
		assert.Equal(t, 7.5, m.PricePer30m)
		assert.Equal(t, 24.0, m.MemoryGB)
		assert.Equal(t, []string{"RTX-4090-01", "RTX-4090-02"}, m.InstanceIDs)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("BadYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "inventory.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gpu_models: {not: [valid"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestParseMemoryGB(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"24GB", 24, false},
		{"80GB", 80, false},
		{"12gb", 12, false},
		{" 16 GB ", 16, false},
		{"10", 10, false},
		{"1.5GB", 1.5, false},
		{"", 0, true},
		{"lots", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseMemoryGB(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
