package behavior

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jsm174/libaltsound/internal/catalog"
	"github.com/jsm174/libaltsound/internal/errs"
)

// BehaviorFile is the behavior-table YAML filename expected alongside
// the CSV manifest under <base>/altsound/<game>/.
const BehaviorFile = "behaviors.yaml"

// Load reads a behavior table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError("behavior.Load", err)
	}

	var raw map[string]*Info
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewConfigError("behavior.Load", err)
	}

	t := New()
	for cat, info := range raw {
		t.Set(catalog.Category(cat), info)
	}
	return t, nil
}

// LoadFromGameDir loads <base>/altsound/<game>/behaviors.yaml, falling
// back to Default() if the file does not exist.
func LoadFromGameDir(base, game string) (*Table, error) {
	path := filepath.Join(base, "altsound", game, BehaviorFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
