package contract

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

//go:embed contracts
var embedded embed.FS

// Source reads raw contracts.
type Source interface {
	Get(key Key) (*Contract, error)
	List() ([]Key, error)
}

// FSSource reads contracts laid out as <TYPE>/v<N>.yaml|.proto under an fs.FS.
// YAML wins when both formats exist for the same version.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource creates a source over fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource reads contracts from a directory on disk.
func NewDirSource(dir string) (*FSSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("contracts path %q is not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("contracts path %q is not a directory", dir)
	}
	return NewFSSource(os.DirFS(dir)), nil
}

// EmbeddedSource returns the contracts compiled into the binary.
func EmbeddedSource() *FSSource {
	sub, err := fs.Sub(embedded, "contracts")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return NewFSSource(sub)
}

func (s *FSSource) Get(key Key) (*Contract, error) {
	dir := string(key.Type)
	yamlPath := path.Join(dir, fmt.Sprintf("v%d.yaml", key.Version))
	protoPath := path.Join(dir, fmt.Sprintf("v%d.proto", key.Version))

	yamlDef, yamlErr := fs.ReadFile(s.fsys, yamlPath)
	protoDef, protoErr := fs.ReadFile(s.fsys, protoPath)

	if yamlErr != nil && !errors.Is(yamlErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", yamlPath, yamlErr)
	}
	if protoErr != nil && !errors.Is(protoErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", protoPath, protoErr)
	}

	switch {
	case yamlErr == nil && protoErr == nil:
		slog.Warn("[Contracts] Both .yaml and .proto exist, using .yaml",
			"event_type", key.Type,
			"version", key.Version,
		)
		return newContract(key, FormatYAML, yamlDef), nil
	case yamlErr == nil:
		return newContract(key, FormatYAML, yamlDef), nil
	case protoErr == nil:
		return newContract(key, FormatProtobuf, protoDef), nil
	}
	return nil, ErrNotFound
}

// List returns every contract key found, one per (type, version).
func (s *FSSource) List() ([]Key, error) {
	dirs, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	var keys []Key
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		eventType := v1.EventType(dir.Name())
		if !eventType.Valid() {
			slog.Warn("[Contracts] Skipping directory for unknown event type", "dir", dir.Name())
			continue
		}

		files, err := fs.ReadDir(s.fsys, dir.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir.Name(), err)
		}
		seen := make(map[int]bool)
		for _, f := range files {
			version, ok := parseVersionFile(f.Name())
			if !ok || seen[version] {
				continue
			}
			seen[version] = true
			keys = append(keys, Key{Type: eventType, Version: version})
		}
	}
	return keys, nil
}

// parseVersionFile extracts N from "vN.yaml" or "vN.proto".
func parseVersionFile(name string) (int, bool) {
	if !strings.HasPrefix(name, "v") {
		return 0, false
	}
	ext := path.Ext(name)
	if ext != ".yaml" && ext != ".proto" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "v"), ext))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
