package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const zoneinfoDir = "/usr/share/zoneinfo"

// LoadLocation resolves an IANA name. Empty and "Local" are rejected since
// they would silently mean UTC or the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

var (
	zonesOnce sync.Once
	zones     []string
)

// fallbackZones is served when the host has no zoneinfo tree.
var fallbackZones = []string{
	"Africa/Cairo", "Africa/Johannesburg", "Africa/Lagos",
	"America/Chicago", "America/Denver", "America/Los_Angeles",
	"America/New_York", "America/Sao_Paulo", "America/Toronto",
	"Asia/Dubai", "Asia/Kolkata", "Asia/Shanghai", "Asia/Singapore", "Asia/Tokyo",
	"Australia/Sydney", "Europe/Berlin", "Europe/London", "Europe/Madrid",
	"Europe/Paris", "Pacific/Auckland", "UTC",
}

// Timezones lists the IANA zone names available on this host, sorted.
func Timezones() []string {
	zonesOnce.Do(func() {
		zones = scanZoneinfo(os.DirFS(zoneinfoDir))
		if len(zones) == 0 {
			zones = fallbackZones
		}
	})
	out := make([]string, len(zones))
	copy(out, zones)
	return out
}

func scanZoneinfo(fsys fs.FS) []string {
	var names []string
	_ = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == "posix" || path == "right" {
				return fs.SkipDir
			}
			return nil
		}
		first := path[0]
		if first < 'A' || first > 'Z' || strings.Contains(filepath.Base(path), ".") {
			return nil
		}
		if _, err := time.LoadLocation(path); err == nil {
			names = append(names, path)
		}
		return nil
	})
	sort.Strings(names)
	return names
}
