package backend

import (
	"fmt"

	"gestion/internal/config"
)

// FromAppConfig converts the application config to mirror config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := MirrorType(appConfig.MirrorBackend)
	if t == "" {
		t = NoMirror
	}
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid mirror backend in config: %s", appConfig.MirrorBackend)
	}

	return Config{
		Type:                  t,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
		GoogleCredentialsJSON: appConfig.GoogleCredentialsJSON,
		EnsureTabs:            true,
	}, nil
}

// Validate validates the mirror configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror type: %s", c.Type)
	}
	if c.Type == SheetsMirror {
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets mirror")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			return fmt.Errorf("either GoogleCredentialsFile or GoogleCredentialsJSON must be provided for sheets mirror")
		}
	}
	return nil
}

// MirrorTypeStrings returns all valid mirror type strings.
func MirrorTypeStrings() []string {
	types := []MirrorType{NoMirror, MemoryMirror, SheetsMirror}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
