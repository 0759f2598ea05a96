package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// Load loads and validates a network declaration. The format is determined by
// the file extension; TOML, YAML, and JSON are supported.
func Load(file string) (*Network, error) {
	n := new(Network)
	err := load(filepath.Dir(file), file, n)
	if err != nil {
		return nil, errors.BadRequest.WithFormat("load %s: %w", file, err)
	}

	err = n.Validate()
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Store writes a network declaration as TOML.
func Store(file string, n *Network) error {
	err := os.MkdirAll(filepath.Dir(file), 0755)
	if err != nil {
		return errors.UnknownError.WithFormat("store %s: %w", file, err)
	}

	f, err := os.Create(file)
	if err != nil {
		return errors.UnknownError.WithFormat("store %s: %w", file, err)
	}
	defer f.Close()

	err = toml.NewEncoder(f).Encode(n)
	if err != nil {
		return errors.EncodingError.WithFormat("store %s: %w", file, err)
	}
	return nil
}

func load(dir, file string, c interface{}) error {
	v := viper.New()
	v.SetConfigFile(file)
	v.AddConfigPath(dir)
	err := v.ReadInConfig()
	if err != nil {
		return errors.UnknownError.WithFormat("read: %w", err)
	}

	err = v.Unmarshal(c)
	if err != nil {
		return errors.EncodingError.WithFormat("unmarshal: %w", err)
	}

	return nil
}
