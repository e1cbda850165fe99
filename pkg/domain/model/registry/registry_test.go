package registry_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cropbase/cropbase/pkg/domain/model/registry"
	"github.com/cropbase/cropbase/pkg/domain/predict"
	"github.com/cropbase/cropbase/pkg/utils/cmp"
	"github.com/cropbase/cropbase/pkg/utils/try"
)

func artifactForTest() predict.Artifact {
	return predict.Artifact{
		ModelType: predict.ModelTypeGBT,
		BaseScore: 100,
		Trees: []predict.Tree{
			{Nodes: []predict.Node{{Leaf: true, Weight: 1, Value: 1}}},
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("it stores and loads an artifact set", func(t *testing.T) {
		reg := try.To(registry.New(t.TempDir())).OrFatal(t)

		features := predict.FeatureSpec{
			Names: predict.FeatureNames,
			Encodings: map[string]map[string]float64{
				"crop": {"corn": 0.75, "soybean": 0.25},
			},
		}
		metrics := map[string]float64{"val_rmse": 12.5}
		params := map[string]float64{"n_estimators": 500}

		if err := reg.Save("gbt-v1", artifactForTest(), features, metrics, params); err != nil {
			t.Fatal(err)
		}

		loaded := try.To(reg.LoadArtifact("gbt-v1")).OrFatal(t)
		if loaded.BaseScore != 100 || len(loaded.Trees) != 1 {
			t.Errorf("unexpected artifact: %+v", loaded)
		}

		spec := try.To(reg.LoadFeatures("gbt-v1")).OrFatal(t)
		if !cmp.SliceEq(spec.Names, features.Names) {
			t.Errorf("unexpected feature names: %v", spec.Names)
		}
		if !cmp.MapEq(spec.Encodings["crop"], features.Encodings["crop"]) {
			t.Errorf("unexpected encodings: %v", spec.Encodings)
		}
	})

	t.Run("it refuses to overwrite a stored tag", func(t *testing.T) {
		reg := try.To(registry.New(t.TempDir())).OrFatal(t)
		spec := predict.FeatureSpec{Names: predict.FeatureNames}

		if err := reg.Save("gbt-v1", artifactForTest(), spec, nil, nil); err != nil {
			t.Fatal(err)
		}
		if err := reg.Save("gbt-v1", artifactForTest(), spec, nil, nil); err == nil {
			t.Error("no error on duplicate tag")
		}
	})

	t.Run("loading a missing tag reports ErrNotStored", func(t *testing.T) {
		reg := try.To(registry.New(t.TempDir())).OrFatal(t)
		if _, err := reg.LoadArtifact("nope"); !errors.Is(err, registry.ErrNotStored) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it rejects tags escaping the root", func(t *testing.T) {
		reg := try.To(registry.New(t.TempDir())).OrFatal(t)
		for _, tag := range []string{"", "..", "a/b", `a\b`} {
			if err := reg.Save(tag, artifactForTest(), predict.FeatureSpec{}, nil, nil); err == nil {
				t.Errorf("no error on tag %q", tag)
			}
		}
	})

	t.Run("list and remove", func(t *testing.T) {
		root := t.TempDir()
		reg := try.To(registry.New(root)).OrFatal(t)
		spec := predict.FeatureSpec{Names: predict.FeatureNames}

		for _, tag := range []string{"gbt-b", "gbt-a"} {
			if err := reg.Save(tag, artifactForTest(), spec, nil, nil); err != nil {
				t.Fatal(err)
			}
		}

		tags := try.To(reg.ListTags()).OrFatal(t)
		if !cmp.SliceEq(tags, []string{"gbt-a", "gbt-b"}) {
			t.Errorf("unexpected tags: %v", tags)
		}

		if err := reg.Remove("gbt-a"); err != nil {
			t.Fatal(err)
		}
		tags = try.To(reg.ListTags()).OrFatal(t)
		if !cmp.SliceEq(tags, []string{"gbt-b"}) {
			t.Errorf("unexpected tags after remove: %v", tags)
		}

		// removing twice is fine
		if err := reg.Remove("gbt-a"); err != nil {
			t.Errorf("remove of removed tag: %v", err)
		}
	})

	t.Run("SaveRaw verifies the model document", func(t *testing.T) {
		root := t.TempDir()
		reg := try.To(registry.New(root)).OrFatal(t)

		good := []byte(`{"modelType": "gbt", "baseScore": 1, "trees": [{"nodes": [{"leaf": true, "weight": 1, "value": 1}]}]}`)
		features := []byte(`{"names": ["acres"], "encodings": {}}`)
		if err := reg.SaveRaw("external-v1", good, features); err != nil {
			t.Fatal(err)
		}
		if _, err := reg.LoadArtifact("external-v1"); err != nil {
			t.Errorf("stored raw artifact can not be loaded: %v", err)
		}

		bad := []byte(`{"modelType": "mystery"}`)
		if err := reg.SaveRaw("external-v2", bad, features); err == nil {
			t.Error("no error on unsupported model document")
		}
		if _, err := filepath.Glob(filepath.Join(root, "external-v2", "*")); err != nil {
			t.Fatal(err)
		}
	})
}
