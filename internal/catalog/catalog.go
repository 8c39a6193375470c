package catalog

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"skhpc/internal/models"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only in-memory view of GPU models and their physical
// instances. Loaded once at process start; a load failure is fatal because
// neither availability nor pricing can be computed without it.
type Catalog struct {
	models     []models.GpuModel
	byID       map[string]int
	byInstance map[string]string // instance id -> model id
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var file struct {
		GpuModels []models.GpuModel `yaml:"gpu_models"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}

	return New(file.GpuModels)
}

func New(gpuModels []models.GpuModel) (*Catalog, error) {
	c := &Catalog{
		models:     make([]models.GpuModel, 0, len(gpuModels)),
		byID:       make(map[string]int, len(gpuModels)),
		byInstance: make(map[string]string),
	}

	for _, m := range gpuModels {
		if m.ID == "" {
			return nil, fmt.Errorf("gpu model %q has empty id", m.Name)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate gpu model id: %s", m.ID)
		}
		if len(m.InstanceIDs) == 0 {
			return nil, fmt.Errorf("gpu model %s has no instances", m.ID)
		}

		memGB, err := ParseMemoryGB(m.Memory)
		if err != nil {
			return nil, fmt.Errorf("gpu model %s: %w", m.ID, err)
		}
		m.MemoryGB = memGB

		for _, id := range m.InstanceIDs {
			if owner, dup := c.byInstance[id]; dup {
				return nil, fmt.Errorf("instance id %s duplicated between models %s and %s", id, owner, m.ID)
			}
			c.byInstance[id] = m.ID
		}

		c.byID[m.ID] = len(c.models)
		c.models = append(c.models, m)
	}

	if len(c.models) == 0 {
		return nil, fmt.Errorf("inventory contains no gpu models")
	}
	return c, nil
}

// ParseMemoryGB converts a unit-suffixed memory string like "24GB" to GB.
func ParseMemoryGB(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	idx := strings.Index(strings.ToUpper(s), "GB")
	if idx > 0 {
		s = s[:idx]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q: %w", raw, err)
	}
	return v, nil
}

// Models returns models in catalog insertion order.
func (c *Catalog) Models() []models.GpuModel {
	return c.models
}

// Get looks up a model by its exact id.
func (c *Catalog) Get(modelID string) (models.GpuModel, bool) {
	idx, ok := c.byID[modelID]
	if !ok {
		return models.GpuModel{}, false
	}
	return c.models[idx], true
}

// HasInstance reports whether the instance id belongs to the given model.
func (c *Catalog) HasInstance(modelID, instanceID string) bool {
	return c.byInstance[instanceID] == modelID
}

// ModelForInstance resolves the owning model id of a physical instance.
func (c *Catalog) ModelForInstance(instanceID string) (string, bool) {
	m, ok := c.byInstance[instanceID]
	return m, ok
}

// TotalInstances counts physical instances across the catalog.
func (c *Catalog) TotalInstances() int {
	return len(c.byInstance)
}
