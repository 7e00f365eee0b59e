package awsx

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// ListProfiles enumerates profile names from the shared AWS config and
// credentials files.  Missing files are not an error; an empty slice just
// means the default credential chain is all there is to offer.
func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configFile := os.Getenv("AWS_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(home, ".aws", "config")
	}
	credsFile := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credsFile == "" {
		credsFile = filepath.Join(home, ".aws", "credentials")
	}

	seen := make(map[string]struct{})
	addProfiles(seen, configFile, true)
	addProfiles(seen, credsFile, false)

	profiles := make([]string, 0, len(seen))
	for p := range seen {
		profiles = append(profiles, p)
	}
	sort.Strings(profiles)
	return profiles, nil
}

func addProfiles(seen map[string]struct{}, path string, isConfig bool) {
	f, err := ini.Load(path)
	if err != nil {
		return
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		switch {
		case name == ini.DefaultSection:
			continue
		case name == "default":
			seen["default"] = struct{}{}
		case isConfig && strings.HasPrefix(name, "profile "):
			seen[strings.TrimPrefix(name, "profile ")] = struct{}{}
		case !isConfig:
			seen[name] = struct{}{}
		}
	}
}
