package simulation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// ManifestFileName is the name of the manifest inside a simulation root.
const ManifestFileName = "manifest.json"

// ErrAlreadyExists is returned by CreateNewSim when the simulation root
// already exists. The returned error also matches fs.ErrExist.
var ErrAlreadyExists = errors.New("simulation already exists")

// A ConfigureFunc populates a freshly created simulation root with its initial
// manifest and directory layout.
type ConfigureFunc func(path string) error

// A Factory creates the tick body of a loaded simulation from its manifest.
type Factory func(path string, manifest Manifest) (Ticker, error)

// ManifestPath returns the location of the manifest of the simulation rooted
// at path.
func ManifestPath(path string) string {
	return filepath.Join(path, ManifestFileName)
}

// CreateNewSim creates the simulation root directory and calls configure to
// fill it. It fails with ErrAlreadyExists if the directory already exists.
func CreateNewSim(path string, configure ConfigureFunc) error {
	path = filepath.Clean(path)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	err = os.Mkdir(path, 0o755)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}

		return fmt.Errorf("creating simulation directory: %w", err)
	}

	if configure == nil {
		return nil
	}

	err = configure(path)
	if err != nil {
		return fmt.Errorf("configuring simulation %s: %w", path, err)
	}

	return nil
}

// LoadSim loads the simulation stored at path with default settings. It
// returns nil and no error if the path or its manifest does not exist.
func LoadSim(path string, factory Factory) (*Simulation, error) {
	return MakeBuilder().Load(path, factory)
}

// ReadManifest decodes the manifest of the simulation rooted at path.
func ReadManifest(path string) (Manifest, error) {
	file, err := os.Open(ManifestPath(path))
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()

	codec := JSONCodec{}

	m, err := codec.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", file.Name(), err)
	}

	return m, nil
}

// WriteManifest encodes the manifest into the simulation rooted at path. The
// file is replaced atomically.
func WriteManifest(path string, m Manifest) error {
	tmp, err := os.CreateTemp(path, ManifestFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}

	codec := JSONCodec{}

	err = codec.Encode(tmp, m)
	if err == nil {
		err = tmp.Chmod(0o644)
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("encoding manifest: %w", err)
	}

	err = os.Rename(tmp.Name(), ManifestPath(path))
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing manifest: %w", err)
	}

	return nil
}

// isNotExist also treats a root that is a regular file as missing.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func wrapFactoryErr(path string, err error) error {
	return fmt.Errorf("creating simulation %s: %w", path, err)
}
