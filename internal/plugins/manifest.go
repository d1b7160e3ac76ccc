package plugins

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/metafile"
)

// Manifest maps entries to the files they need, with a digest per file so
// servers can set long-lived cache headers.
type Manifest struct {
	BuildID string                `json:"buildId"`
	Entries map[string]EntryFiles `json:"entries"`
	Files   map[string]FileInfo   `json:"files"`
}

type EntryFiles struct {
	Scripts []string `json:"scripts"`
	Styles  []string `json:"styles"`
}

type FileInfo struct {
	Digest string `json:"digest"`
	Size   int    `json:"size"`
}

// Digest returns the base58 encoded CRC-64/NVME of data.
func Digest(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return base58.Encode(sum[:])
}

type manifestPlugin struct {
	env      Env
	filename string
}

func newManifest(options map[string]any, env Env) (api.Plugin, error) {
	filename, err := stringOption(options, "filename", "manifest.json")
	if err != nil {
		return api.Plugin{}, err
	}
	m := &manifestPlugin{env: env, filename: filename}
	return api.Plugin{
		Name: "manifest",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				return api.OnEndResult{}, m.write(result)
			})
		},
	}, nil
}

func (m *manifestPlugin) write(result *api.BuildResult) error {
	manifest, err := BuildManifest(m.env, result)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if _, err := writeIfChanged(filepath.Join(m.env.OutDir, m.filename), append(data, '\n')); err != nil {
		return err
	}

	log.Debug().Str("build_id", manifest.BuildID).Int("files", len(manifest.Files)).Msg("wrote manifest")
	return nil
}

// BuildManifest assembles the manifest for a finished build.
func BuildManifest(env Env, result *api.BuildResult) (*Manifest, error) {
	md, err := metafile.Parse(result.Metafile)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		BuildID: uuid.Must(uuid.NewV7()).String(),
		Entries: make(map[string]EntryFiles, len(env.Entries)),
		Files:   make(map[string]FileInfo, len(result.OutputFiles)),
	}

	for _, entry := range env.Entries {
		scripts, err := md.Scripts(env.EntryPoint(entry))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry.Name, err)
		}
		styles, err := md.Styles(env.EntryPoint(entry))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry.Name, err)
		}
		manifest.Entries[entry.Name] = EntryFiles{
			Scripts: env.URLs(scripts),
			Styles:  env.URLs(styles),
		}
	}

	for _, file := range result.OutputFiles {
		manifest.Files[env.Rel(file.Path)] = FileInfo{
			Digest: Digest(file.Contents),
			Size:   len(file.Contents),
		}
	}

	return manifest, nil
}
