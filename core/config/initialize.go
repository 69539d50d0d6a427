package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"log"

	"github.com/spf13/afero"
	gossh "golang.org/x/crypto/ssh"
)

// Initialize writes a default configuration directory: config.yaml and a
// freshly generated SSH host key. Existing files are left alone so the
// call is safe to repeat.
func Initialize(path string, logger *log.Logger) error {
	fs := afero.NewBasePathFs(afero.NewOsFs(), path)

	if exists, _ := afero.Exists(fs, ConfigurationName); !exists {
		if err := afero.WriteFile(fs, ConfigurationName, defaultConfigData, 0644); err != nil {
			return err
		}
		logger.Printf("wrote %s", ConfigurationName)
	} else {
		logger.Printf("%s already exists, skipping", ConfigurationName)
	}

	if exists, _ := afero.Exists(fs, PrivateKeyName); !exists {
		keyPem, err := generateHostKey()
		if err != nil {
			return err
		}
		if err := afero.WriteFile(fs, PrivateKeyName, keyPem, 0600); err != nil {
			return err
		}
		logger.Printf("wrote %s", PrivateKeyName)
	} else {
		logger.Printf("%s already exists, skipping", PrivateKeyName)
	}

	return nil
}

func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	block, err := gossh.MarshalPrivateKey(priv, "npshell host key")
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}
