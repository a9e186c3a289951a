package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultExtraOptsSection is the INI section read when --extra-opts names
// no section of its own.
const DefaultExtraOptsSection = "check_apt"

// defaultExtraOptsPaths are probed in order when --extra-opts gives no
// explicit file. Missing files are skipped silently.
var defaultExtraOptsPaths = []string{
	"/etc/nagios/plugins.ini",
	"/usr/local/nagios/etc/plugins.ini",
	"/etc/nagios-plugins/plugins.ini",
}

// ApplyExtraOpts fills opts from an INI defaults file, following the
// monitoring-plugins extra-opts convention. spec has the form
// "section", "section@file", "@file", or "" (default section, default
// paths). Flags the user set explicitly on the command line win over INI
// values; changed reports whether a flag was set, keyed by its long name.
func ApplyExtraOpts(opts *Options, spec string, changed func(name string) bool) error {
	sectionName := DefaultExtraOptsSection
	var file string

	if at := strings.IndexByte(spec, '@'); at >= 0 {
		if at > 0 {
			sectionName = spec[:at]
		}
		file = spec[at+1:]
	} else if spec != "" {
		sectionName = spec
	}

	cfg, err := loadExtraOptsFile(file)
	if err != nil {
		return err
	}
	if cfg == nil {
		// No defaults file present anywhere; nothing to merge.
		return nil
	}

	section, err := cfg.GetSection(sectionName)
	if err != nil {
		return fmt.Errorf("extra-opts section [%s] not found", sectionName)
	}

	return mergeSection(opts, section, changed)
}

func loadExtraOptsFile(file string) (*ini.File, error) {
	if file != "" {
		cfg, err := ini.Load(file)
		if err != nil {
			return nil, fmt.Errorf("cannot read extra-opts file %s: %w", file, err)
		}
		return cfg, nil
	}
	for _, path := range defaultExtraOptsPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read extra-opts file %s: %w", path, err)
		}
		return cfg, nil
	}
	return nil, nil
}

func mergeSection(opts *Options, section *ini.Section, changed func(name string) bool) error {
	var firstErr error

	setInt := func(name string, dst *int) {
		if changed(name) || !section.HasKey(name) {
			return
		}
		v, err := section.Key(name).Int()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("extra-opts key %s: %w", name, err)
			return
		}
		*dst = v
	}
	setBool := func(name string, dst *bool) {
		if changed(name) || !section.HasKey(name) {
			return
		}
		v, err := section.Key(name).Bool()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("extra-opts key %s: %w", name, err)
			return
		}
		*dst = v
	}
	setString := func(name string, dst *string) {
		if changed(name) || !section.HasKey(name) {
			return
		}
		*dst = section.Key(name).String()
	}

	setInt("verbose", &opts.Verbosity)
	setInt("timeout", &opts.TimeoutSeconds)
	setBool("update", &opts.DoUpdate)
	setBool("dist-upgrade", &opts.DistUpgrade)
	setBool("list", &opts.ListPackages)
	setString("include", &opts.IncludePattern)
	setString("exclude", &opts.ExcludePattern)
	setString("critical", &opts.CriticalPattern)
	setInt("packages-warning", &opts.PackagesWarning)
	setString("update-opts", &opts.UpdateOpts)
	setString("upgrade-opts", &opts.UpgradeOpts)

	return firstErr
}
