package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/rowsio"
)

// loadRows reads a .json or .csv rows file. Rows without an id field are
// numbered from 1 in file order.
func loadRows(path, idField string) (rowsio.Dataset, error) {
	if path == "" {
		return rowsio.Dataset{}, errors.New("a rows file is required")
	}
	format, err := rowsio.FormatForPath(path)
	if err != nil {
		return rowsio.Dataset{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return rowsio.Dataset{}, fmt.Errorf("open rows: %w", err)
	}
	defer f.Close()

	ds, err := rowsio.Read(f, format, rowsio.Options{IDField: idField})
	if err != nil {
		return rowsio.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// loadPreset reads a preset from YAML (.yaml, .yml) or JSON (.json).
func loadPreset(path string) (core.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Preset{}, fmt.Errorf("read preset: %w", err)
	}
	var p core.Preset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		return core.Preset{}, fmt.Errorf("preset file %s: extension must be .yaml, .yml or .json", path)
	}
	if err != nil {
		return core.Preset{}, fmt.Errorf("decode preset %s: %w", path, err)
	}
	return p, nil
}
