package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"

	"invoice-reconciliation-service/internal/features"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// ArtifactSchemaVersion is the current on-disk model schema.
const ArtifactSchemaVersion = 1

// Artifact is the persisted model file. The feature list is a required field
// as of schema version 1; artifacts written before the field existed are
// loaded with the canonical default list.
type Artifact struct {
	SchemaVersion int       `json:"schema_version"`
	Features      []string  `json:"features"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Means         []float64 `json:"means,omitempty"`
	Stds          []float64 `json:"stds,omitempty"`
}

// SaveModel writes the model artifact as JSON.
func SaveModel(model *Model, path string) error {
	artifact := Artifact{
		SchemaVersion: ArtifactSchemaVersion,
		Features:      model.Features,
		Weights:       model.Weights,
		Bias:          model.Bias,
		Means:         model.Means,
		Stds:          model.Stds,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return errors.ModelError(errors.CodeArtifactCorrupt, "marshal", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.FileError(errors.CodeFileWrite, path, err)
	}

	logger.GetGlobalLogger().WithComponent("classifier").
		WithField("path", path).Info("Model artifact saved")
	return nil
}

// LoadModel reads a model artifact. A missing file is a ConfigurationError
// so callers can tell "train first" apart from a corrupt artifact.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigurationError(errors.CodeMissingArtifact, path, err)
		}
		return nil, errors.FileError(errors.CodeFileRead, path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, errors.ModelError(errors.CodeArtifactCorrupt, path, err)
	}
	if len(artifact.Weights) == 0 {
		return nil, errors.ModelError(errors.CodeArtifactCorrupt, path, nil).
			WithContext("reason", "artifact has no weights")
	}

	// Migration path for artifacts predating the required feature list.
	if len(artifact.Features) == 0 {
		artifact.Features = features.CanonicalFeatures
		logger.GetGlobalLogger().WithComponent("classifier").
			WithField("path", path).
			Warn("Artifact has no feature list, assuming the canonical default")
	}
	if len(artifact.Features) != len(artifact.Weights) {
		return nil, errors.ModelError(errors.CodeArtifactCorrupt, path, nil).
			WithContext("reason", "feature list and weights disagree in length")
	}

	return &Model{
		Features: artifact.Features,
		Weights:  artifact.Weights,
		Bias:     artifact.Bias,
		Means:    artifact.Means,
		Stds:     artifact.Stds,
	}, nil
}
