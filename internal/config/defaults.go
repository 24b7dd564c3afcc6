package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			NamespaceKey:        "history",
			MaxVisitsPerChannel: 100,
			DebounceWindowMs:    60000,
		},
		Identify: IdentifyConfig{
			ExcludedRoutes: DefaultExcludedRoutes(),
			Selectors:      DefaultSelectors(),
			EmbedHost:      "player.twitch.tv",
			ChannelURLBase: "https://twitch.tv/",
		},
		Signals: SignalsConfig{
			LoadDelayMs:      2000,
			PlayDelayMs:      1000,
			SweepDelayMs:     3000,
			PreviewSustainMs: 3000,
			NavigateDelayMs:  2000,
		},
		Query: QueryConfig{
			PageSize:      10,
			RecentDisplay: 5,
		},
		Storage: StorageConfig{
			Path:              "~/.config/visitlog",
			SQLiteFile:        "visitlog.db",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8722,
			MaxRequestSize: 2097152,
			RateLimit:      20,
			RateBurst:      40,
			SpoolDir:       "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "",
		},
	}
}

// DefaultExcludedRoutes returns the top-level platform routes that are never
// channel pages.
func DefaultExcludedRoutes() []string {
	return []string{
		"directory",
		"videos",
		"downloads",
		"settings",
		"subscriptions",
		"inventory",
		"drops",
		"following",
		"search",
		"moderator",
		"dashboard",
		"team",
		"event",
		"prime",
		"turbo",
	}
}

// DefaultSelectors returns the DOM selectors tried, in order, for the active
// stream's channel name.
func DefaultSelectors() []string {
	return []string{
		".persistent-player .channel-info a",
		".metadata-layout__support a",
		"[data-a-target='stream-title']",
	}
}
