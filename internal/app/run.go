package app

import (
	"log"

	fyneapp "fyne.io/fyne/v2/app"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/scoring"
)

// Run loads the configuration, starts the desktop UI and saves the panel
// values on exit.
func Run() error {
	cfg, err := scoring.LoadConfig("")
	if err != nil {
		return err
	}

	a := fyneapp.NewWithID(fyneAppID)
	u, err := buildUI(a, cfg, bridgeFactory(cfg.Engine))
	if err != nil {
		return err
	}
	u.w.ShowAndRun()
	return scoring.SaveConfig("", u.currentConfig())
}

// bridgeFactory starts the external scorer, with an on-disk result cache
// when a cache directory is configured.
func bridgeFactory(cfg scoring.EngineConfig) EngineFactory {
	return func(colorer engine.Colorer, logger *log.Logger) (engine.Engine, error) {
		b := engine.NewBridge(cfg.Command, cfg.Args, colorer, logger)
		b.Timeout = cfg.Timeout()
		if cfg.CacheDir == "" {
			return b, nil
		}
		return engine.NewCache(b, cfg.CacheDir)
	}
}
