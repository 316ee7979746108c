// Package settings layers the three settings files (global, project, local)
// into one effective configuration, remembering which layer supplied each
// field. Precedence is local over project over global. A missing layer is
// normal; a malformed one is reported and skipped, never fatal.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

// Layer binds a settings file to the scope it provides.
type Layer struct {
	Scope models.SettingsScope
	Path  string
}

// Layers builds the standard three-tier layer list for a project. Lower
// index means lower precedence.
func Layers(claudeDir, projectPath string) []Layer {
	layers := []Layer{
		{Scope: models.ScopeGlobal, Path: filepath.Join(claudeDir, "settings.json")},
	}
	if projectPath != "" {
		layers = append(layers,
			Layer{Scope: models.ScopeProject, Path: filepath.Join(projectPath, ".claude", "settings.json")},
			Layer{Scope: models.ScopeLocal, Path: filepath.Join(projectPath, ".claude", "settings.local.json")},
		)
	}
	return layers
}

// Merge reads each layer in precedence order and folds its top-level fields
// into the result, recording per-field provenance. Layer failures land in
// the returned report; the merge of the remaining layers still proceeds.
func Merge(layers []Layer) (*models.MergedConfig, *models.LoadReport) {
	merged := models.NewMergedConfig()
	report := &models.LoadReport{}

	for _, layer := range layers {
		values, err := readLayer(layer.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				report.Add(layerSource(layer.Scope), models.SeverityInfo,
					fmt.Sprintf("no %s settings file", layer.Scope), "")
				continue
			}
			report.Add(layerSource(layer.Scope), models.SeverityError,
				err.Error(), errs.Suggestion(err))
			continue
		}
		for key, value := range values {
			merged.Values[key] = value
			merged.Provenance[key] = layer.Scope
		}
		report.SettingsLoaded = true
	}

	return merged, report
}

func readLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errs.New(errs.KindParse, "decode settings", path,
			fmt.Errorf("malformed settings file: %w", err))
	}
	return values, nil
}

func layerSource(scope models.SettingsScope) string {
	return "settings:" + string(scope)
}
