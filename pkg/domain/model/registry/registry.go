// Package registry stores model artifacts on disk.
//
// Each model version owns one directory named after its version tag:
//
//	<root>/<tag>/model.json     tree ensemble
//	<root>/<tag>/features.json  feature layout and encodings
//	<root>/<tag>/metrics.json   evaluation metrics
//	<root>/<tag>/params.json    training hyperparameters
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cropbase/cropbase/pkg/domain/predict"
	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

type Registry struct {
	root string
}

func New(root string) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, xe.Wrap(err)
	}
	return &Registry{root: root}, nil
}

const (
	fileModel    = "model.json"
	fileFeatures = "features.json"
	fileMetrics  = "metrics.json"
	fileParams   = "params.json"
)

func (r *Registry) dir(tag string) (string, error) {
	if tag == "" || strings.ContainsAny(tag, "/\\") || tag == "." || tag == ".." {
		return "", xe.Errorf("invalid version tag: %q", tag)
	}
	return filepath.Join(r.root, tag), nil
}

// Save writes the artifact set of a version tag.
//
// It fails when the tag already exists.
func (r *Registry) Save(
	tag string,
	artifact predict.Artifact,
	features predict.FeatureSpec,
	metrics map[string]float64,
	params map[string]float64,
) error {
	dir, err := r.dir(tag)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		return xe.Errorf("model version already stored: %s", tag)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xe.Wrap(err)
	}

	files := map[string]any{
		fileModel:    artifact,
		fileFeatures: features,
		fileMetrics:  metrics,
		fileParams:   params,
	}
	for name, content := range files {
		raw, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return xe.Wrap(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			return xe.Wrap(err)
		}
	}
	return nil
}

// SaveRaw stores an externally built artifact set, verifying that the
// model file parses as a supported ensemble.
func (r *Registry) SaveRaw(tag string, model, features []byte) error {
	if _, err := predict.ParseArtifact(model); err != nil {
		return err
	}
	var spec predict.FeatureSpec
	if err := json.Unmarshal(features, &spec); err != nil {
		return xe.Wrap(err)
	}

	dir, err := r.dir(tag)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		return xe.Errorf("model version already stored: %s", tag)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xe.Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileModel), model, 0o644); err != nil {
		return xe.Wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileFeatures), features, 0o644); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

var ErrNotStored = xe.New("model artifacts are not stored")

func (r *Registry) read(tag string, name string) ([]byte, error) {
	dir, err := r.dir(tag)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return nil, xe.WrapWithNote(ErrNotStored, "version %s (%s)", tag, name)
	} else if err != nil {
		return nil, xe.Wrap(err)
	}
	return raw, nil
}

func (r *Registry) LoadArtifact(tag string) (predict.Artifact, error) {
	raw, err := r.read(tag, fileModel)
	if err != nil {
		return predict.Artifact{}, err
	}
	return predict.ParseArtifact(raw)
}

func (r *Registry) LoadFeatures(tag string) (predict.FeatureSpec, error) {
	raw, err := r.read(tag, fileFeatures)
	if err != nil {
		return predict.FeatureSpec{}, err
	}
	var spec predict.FeatureSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return predict.FeatureSpec{}, xe.Wrap(err)
	}
	return spec, nil
}

// Remove deletes the stored artifacts of a version tag.
//
// Removing a tag that is not stored is not an error.
func (r *Registry) Remove(tag string) error {
	dir, err := r.dir(tag)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// ListTags enumerates version tags having stored artifacts.
func (r *Registry) ListTags() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	tags := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.root, e.Name(), fileModel)); err != nil {
			continue
		}
		tags = append(tags, e.Name())
	}
	sort.Strings(tags)
	return tags, nil
}
