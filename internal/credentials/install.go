package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/quest/internal/storage"
)

const installIDKey = "install_id"

// InstallSecret returns the per-install secret stored in area, generating and
// persisting a new UUID on first use.
func InstallSecret(area storage.Provider) (string, error) {
	data, err := area.Read(installIDKey)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("credentials: read install id: %w", err)
	}
	id := uuid.NewString()
	if err := area.Write(installIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("credentials: write install id: %w", err)
	}
	return id, nil
}
