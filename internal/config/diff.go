package config

import (
	"reflect"
)

// Sections that take effect without a restart.
var hotSections = map[string]bool{
	"logging":   true,
	"scheduler": true,
	"notify":    true,
}

// SummarizeChange lists the sections that differ and, of those, the ones that
// only apply after a restart. It never looks at secret values.
func SummarizeChange(oldCfg, newCfg *Config) (changed, needRestart []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	sections := []struct {
		name     string
		old, new any
	}{
		{"logging", oldCfg.Logging, newCfg.Logging},
		{"transport", oldCfg.Transport, newCfg.Transport},
		{"telegram", oldCfg.Telegram, newCfg.Telegram},
		{"storage", oldCfg.Storage, newCfg.Storage},
		{"state", oldCfg.State, newCfg.State},
		{"scheduler", oldCfg.Scheduler, newCfg.Scheduler},
		{"notify", oldCfg.Notify, newCfg.Notify},
		{"scrape", oldCfg.Scrape, newCfg.Scrape},
		{"ops", oldCfg.Ops, newCfg.Ops},
		{"sources", oldCfg.Sources, newCfg.Sources},
	}
	for _, s := range sections {
		if reflect.DeepEqual(s.old, s.new) {
			continue
		}
		changed = append(changed, s.name)
		if !hotSections[s.name] {
			needRestart = append(needRestart, s.name)
		}
	}
	return changed, needRestart
}
