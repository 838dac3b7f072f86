// Package config stores the view settings dirview starts with.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"dirview/internal/preview"
	"dirview/internal/role"
)

type View struct {
	SortRole       string `json:"sortRole,omitempty"`
	SortOrder      string `json:"sortOrder,omitempty"`
	SortDirsFirst  bool   `json:"sortDirsFirst"`
	SortHiddenLast bool   `json:"sortHiddenLast"`
	NaturalSorting bool   `json:"naturalSorting"`
	ShowHidden     bool   `json:"showHidden"`
	DirsOnly       bool   `json:"dirsOnly"`
	Grouped        bool   `json:"grouped"`

	// Roles are the columns shown next to the name.
	Roles []string `json:"roles,omitempty"`

	Previews       bool     `json:"previews"`
	EnabledPlugins []string `json:"enabledPlugins,omitempty"`
	// MaximumPreviewSize skips previews of larger local files. 0 means no
	// limit.
	MaximumPreviewSize int64 `json:"maximumPreviewSize,omitempty"`

	// DirectorySizeMode is "count" or "size".
	DirectorySizeMode string `json:"directorySizeMode,omitempty"`
	IconSize          int    `json:"iconSize,omitempty"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() *View {
	return &View{
		SortRole:          role.Text,
		SortOrder:         "ascending",
		SortDirsFirst:     true,
		NaturalSorting:    true,
		Roles:             []string{role.Size, role.ModificationTime},
		EnabledPlugins:    preview.DefaultPlugins(),
		DirectorySizeMode: "count",
		IconSize:          64,
	}
}

func Dir() (string, error) {
	// Tests point this elsewhere to keep ~/.config untouched.
	if v := strings.TrimSpace(os.Getenv("DIRVIEW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dirview"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file. Settings missing from the file keep their
// defaults.
func Load() (*View, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(cfg *View) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o644)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

type invalidValueError struct {
	key   string
	value string
	want  string
}

func (e invalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q (want %s)", e.key, e.value, e.want)
}

// Validate rejects unknown roles, orders, modes and plugins.
func (v *View) Validate() error {
	if v.SortRole != "" {
		if _, ok := role.ByName(v.SortRole); !ok {
			return invalidValueError{"sortRole", v.SortRole, "a role name"}
		}
	}
	switch v.SortOrder {
	case "", "ascending", "descending":
	default:
		return invalidValueError{"sortOrder", v.SortOrder, "ascending|descending"}
	}
	switch v.DirectorySizeMode {
	case "", "count", "size":
	default:
		return invalidValueError{"directorySizeMode", v.DirectorySizeMode, "count|size"}
	}
	for _, r := range v.Roles {
		if _, ok := role.ByName(r); !ok {
			return invalidValueError{"roles", r, "role names"}
		}
	}
	known := preview.Plugins()
	for _, p := range v.EnabledPlugins {
		if !slices.Contains(known, p) {
			return invalidValueError{"enabledPlugins", p, strings.Join(known, "|")}
		}
	}
	if v.IconSize < 0 {
		return invalidValueError{"iconSize", strconv.Itoa(v.IconSize), "a size in pixels"}
	}
	return nil
}

// Keys lists the settings Set accepts.
func Keys() []string {
	return []string{
		"sortRole", "sortOrder", "sortDirsFirst", "sortHiddenLast", "naturalSorting",
		"showHidden", "dirsOnly", "grouped", "roles", "previews", "enabledPlugins",
		"maximumPreviewSize", "directorySizeMode", "iconSize",
	}
}

// Set changes one setting from its command line form. Lists are comma
// separated.
func (v *View) Set(key, value string) error {
	value = strings.TrimSpace(value)
	next := *v
	var err error
	switch key {
	case "sortRole":
		next.SortRole = value
	case "sortOrder":
		next.SortOrder = value
	case "sortDirsFirst":
		next.SortDirsFirst, err = parseBool(key, value)
	case "sortHiddenLast":
		next.SortHiddenLast, err = parseBool(key, value)
	case "naturalSorting":
		next.NaturalSorting, err = parseBool(key, value)
	case "showHidden":
		next.ShowHidden, err = parseBool(key, value)
	case "dirsOnly":
		next.DirsOnly, err = parseBool(key, value)
	case "grouped":
		next.Grouped, err = parseBool(key, value)
	case "roles":
		next.Roles = splitList(value)
	case "previews":
		next.Previews, err = parseBool(key, value)
	case "enabledPlugins":
		next.EnabledPlugins = splitList(value)
	case "maximumPreviewSize":
		next.MaximumPreviewSize, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			err = invalidValueError{key, value, "a size in bytes"}
		}
	case "directorySizeMode":
		next.DirectorySizeMode = value
	case "iconSize":
		next.IconSize, err = strconv.Atoi(value)
		if err != nil {
			err = invalidValueError{key, value, "a size in pixels"}
		}
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*v = next
	return nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, invalidValueError{key, value, "true|false"}
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
