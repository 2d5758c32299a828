package pyenv

import (
	"bufio"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

// InstalledState is a snapshot fact about one package in the target
// environment.
type InstalledState struct {
	Name     string
	Version  string
	Location string
	// Installed is false when no distribution by that name was found.
	Installed bool
}

// Inspector reads installed-distribution metadata (.dist-info/.egg-info)
// from the environment's site-packages directories. Lookups never spawn a
// process, and results are never cached: the environment may change between
// calls, including as a side effect of the very call being evaluated.
type Inspector struct {
	env *Environment
	log zerolog.Logger
}

// NewInspector builds an Inspector over env.
func NewInspector(env *Environment, log zerolog.Logger) *Inspector {
	return &Inspector{env: env, log: log}
}

// Lookup reports presence and version for a distribution name. Matching is
// case-insensitive and hyphen/underscore-insensitive. A package that is not
// found is a normal answer, not an error.
func (in *Inspector) Lookup(name string) InstalledState {
	want := requirement.NormalizeName(name)

	for _, dir := range in.env.SitePackages() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			in.log.Debug().Err(err).Str("dir", dir).Msg("skipping unreadable site-packages dir")
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			stem, kind := infoDirStem(entry.Name())
			if kind == "" {
				continue
			}
			dirName, dirVersion := splitNameVersion(stem)
			if requirement.NormalizeName(dirName) != want {
				continue
			}

			metaName, metaVersion := readDistMetadata(filepath.Join(dir, entry.Name()))
			if metaName != "" && requirement.NormalizeName(metaName) != want {
				continue
			}

			state := InstalledState{
				Name:      dirName,
				Version:   dirVersion,
				Location:  dir,
				Installed: true,
			}
			if metaName != "" {
				state.Name = metaName
			}
			if metaVersion != "" {
				state.Version = metaVersion
			}
			return state
		}
	}

	return InstalledState{Name: name}
}

// infoDirStem strips the metadata-directory suffix and names its kind.
func infoDirStem(base string) (stem, kind string) {
	if trimmed, found := strings.CutSuffix(base, ".dist-info"); found {
		return trimmed, "dist-info"
	}
	if trimmed, found := strings.CutSuffix(base, ".egg-info"); found {
		return trimmed, "egg-info"
	}
	return "", ""
}

// splitNameVersion splits a metadata directory stem. Distribution names are
// filename-escaped (hyphens become underscores), so the first hyphen starts
// the version.
func splitNameVersion(stem string) (name, version string) {
	name, version, found := strings.Cut(stem, "-")
	if !found {
		return stem, ""
	}
	return name, version
}

// readDistMetadata pulls Name and Version headers out of a distribution's
// METADATA (dist-info) or PKG-INFO (egg-info) file.
func readDistMetadata(infoDir string) (name, version string) {
	for _, file := range []string{"METADATA", "PKG-INFO"} {
		f, err := os.Open(filepath.Join(infoDir, file))
		if err != nil {
			continue
		}

		reader := textproto.NewReader(bufio.NewReader(f))
		header, readErr := reader.ReadMIMEHeader()
		f.Close()

		// A truncated header block still yields the fields read so far.
		if readErr != nil && len(header) == 0 {
			continue
		}
		return header.Get("Name"), header.Get("Version")
	}
	return "", ""
}
