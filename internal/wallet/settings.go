package wallet

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

const settingsFilename = "settings.json"

// OtelSettings is carried verbatim but never interpreted by the wallet
// core; OpenTelemetry wiring itself is an external collaborator (spec.md
// §1).
type OtelSettings struct {
	Enabled     bool   `json:"enabled"`
	EndpointURL string `json:"endpointUrl,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
}

// Settings is the wallet's unencrypted, always-readable configuration —
// non-sensitive by design, so it stays legible even while locked.
type Settings struct {
	Version                int          `json:"version"`
	AutoLockTimeoutMinutes int          `json:"autoLockTimeoutMinutes"`
	Otel                   OtelSettings `json:"otel"`
}

// DefaultSettings returns the settings a freshly initialized wallet starts
// with.
func DefaultSettings() Settings {
	return Settings{
		Version:                1,
		AutoLockTimeoutMinutes: 15,
		Otel:                   OtelSettings{Enabled: false},
	}
}

func settingsPath(dir string) string {
	return filepath.Join(dir, settingsFilename)
}

// LoadSettings reads settings.json, returning DefaultSettings if no file
// exists yet.
func LoadSettings(dir string) (Settings, error) {
	data, err := os.ReadFile(settingsPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, walleterr.Wrap(walleterr.KindIOError, "read settings file", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, walleterr.Wrap(walleterr.KindSerializationError, "decode settings file", err)
	}
	return s, nil
}

// SaveSettings writes settings.json.
func SaveSettings(dir string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return walleterr.Wrap(walleterr.KindSerializationError, "encode settings", err)
	}
	if err := os.WriteFile(settingsPath(dir), data, 0o644); err != nil {
		return walleterr.Wrap(walleterr.KindIOError, "write settings file", err)
	}
	return nil
}

// resetSettings deletes settings.json, returning the wallet to defaults on
// next LoadSettings.
func resetSettings(dir string) error {
	if err := os.Remove(settingsPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return walleterr.Wrap(walleterr.KindIOError, "remove settings file", err)
	}
	return nil
}
