package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jsm174/libaltsound/internal/errs"
)

// ManifestFile is the sample-row CSV filename expected under
// <base>/altsound/<game>/.
const ManifestFile = "altsound.csv"

// Load reads the manifest CSV at csvPath and returns a populated
// Catalog. Rows are id,path,category,gain,loop,ducking_profile; id may
// repeat to declare alternative samples for the same command.
func Load(csvPath string) (*Catalog, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errs.NewConfigError("catalog.Load", err)
	}
	defer f.Close()

	c := New()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // field count is checked per row below, after comment rows are skipped

	sampleDir := filepath.Dir(csvPath)
	lineNo := 0
	nextID := uint32(1)
	for {
		lineNo++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewConfigError("catalog.Load", fmt.Errorf("%s:%d: %w", csvPath, lineNo, err))
		}
		if len(record) == 0 || strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}
		if len(record) != 6 {
			return nil, errs.NewConfigError("catalog.Load",
				fmt.Errorf("%s:%d: expected 6 fields, got %d", csvPath, lineNo, len(record)))
		}

		cmd, err := parseCommand(record[0])
		if err != nil {
			return nil, errs.NewConfigError("catalog.Load", fmt.Errorf("%s:%d: %w", csvPath, lineNo, err))
		}
		gain, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, errs.NewConfigError("catalog.Load", fmt.Errorf("%s:%d: invalid gain: %w", csvPath, lineNo, err))
		}
		loop, err := strconv.ParseBool(strings.TrimSpace(record[4]))
		if err != nil {
			return nil, errs.NewConfigError("catalog.Load", fmt.Errorf("%s:%d: invalid loop flag: %w", csvPath, lineNo, err))
		}

		relPath := strings.TrimSpace(record[1])
		path := relPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(sampleDir, relPath)
		}

		sample := &Sample{
			ID:             nextID,
			Command:        cmd,
			Path:           path,
			Category:       parseCategory(record[2]),
			DefaultGain:    gain,
			Loop:           loop,
			DuckingProfile: strings.TrimSpace(record[5]),
		}
		nextID++
		c.Add(sample)
	}

	return c, nil
}

// parseCommand accepts either a decimal or 0x-prefixed hex id.
func parseCommand(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid command id %q: %w", s, err)
	}
	return uint16(v), nil
}

// LoadFromGameDir loads the manifest at <base>/altsound/<game>/altsound.csv.
func LoadFromGameDir(base, game string) (*Catalog, error) {
	return Load(filepath.Join(base, "altsound", game, ManifestFile))
}
