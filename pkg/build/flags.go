// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X groove/pkg/build.buildVersion=0.3.0 -X groove/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds fall back to what the Go toolchain recorded in the
// module build info.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Description is the one-line summary used by the CLI.
const Description = "Clean/dirty dual-mix player with a beat-locked renderer feed"

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var readBuildInfo = debug.ReadBuildInfo

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Get returns the build metadata, preferring link-time values.
func Get() Info {
	info := Info{
		Name:    "groove",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
	if bi, ok := readBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				info.Time = s.Value
			}
		}
	}

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&info.Name, buildName},
		{&info.Time, buildTime},
		{&info.Commit, buildCommit},
		{&info.Version, buildVersion},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	return info
}

// Verify reports every link-time flag a release build is missing.
func Verify() error {
	var errs []error
	for _, f := range []struct{ name, val string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.val == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	return errors.Join(errs...)
}

func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s %s (%s, built %s)", i.Name, i.Version, commit, i.Time)
}
