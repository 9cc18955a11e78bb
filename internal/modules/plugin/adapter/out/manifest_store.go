package out

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"engagectl/internal/modules/plugin/domain"
	pluginout "engagectl/internal/modules/plugin/port/out"
)

// ManifestFileName is the plugin registry file inside the data dir.
const ManifestFileName = "plugins.yaml"

type manifestFile struct {
	Plugins []domain.Manifest `yaml:"plugins"`
}

type FileManifestStore struct {
	dataDir string
	path    string
}

func NewFileManifestStore(dataDir string) pluginout.ManifestStore {
	return &FileManifestStore{dataDir: dataDir, path: filepath.Join(dataDir, ManifestFileName)}
}

// Load returns the registered plugins sorted by name. A missing or empty file
// means no plugins. Relative binaries resolve against the data dir.
func (s *FileManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin manifests: %w", err)
	}

	var file manifestFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", ManifestFileName, err)
	}
	manifests := file.Plugins
	if manifests == nil {
		manifests = []domain.Manifest{}
	}
	for i := range manifests {
		if manifests[i].Binary != "" && !filepath.IsAbs(manifests[i].Binary) {
			manifests[i].Binary = filepath.Clean(filepath.Join(s.dataDir, manifests[i].Binary))
		}
	}
	sort.SliceStable(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}
