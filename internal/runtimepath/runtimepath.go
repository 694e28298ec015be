package runtimepath

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// DefaultManagerNamespace is the prefix of the yabai socket file name.
const DefaultManagerNamespace = "yabai"

// Dir returns the directory holding the control socket. Priority:
// 1) YCTRL_RUNTIME_DIR (if set)
// 2) /tmp, where yabai keeps its own socket
func Dir() string {
	if dir := os.Getenv("YCTRL_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return "/tmp"
}

// ControlSocketPath returns the daemon's control socket path.
func ControlSocketPath() string {
	return filepath.Join(Dir(), "yctrl.socket")
}

// User returns the invoking user's name: $USER first, then the passwd entry.
func User() (string, error) {
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}
	if u.Username == "" {
		return "", fmt.Errorf("failed to resolve current user: empty username")
	}
	return u.Username, nil
}

// ManagerSocketPath returns /tmp/<namespace>_<user>.socket. An empty
// namespace selects DefaultManagerNamespace and an empty userName is
// resolved with User.
func ManagerSocketPath(namespace, userName string) (string, error) {
	if namespace == "" {
		namespace = DefaultManagerNamespace
	}
	if userName == "" {
		var err error
		userName, err = User()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join("/tmp", fmt.Sprintf("%s_%s.socket", namespace, userName)), nil
}
