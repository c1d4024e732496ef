package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/lector/data/lector.db"
	}
	if cfg.Library.Path == "" {
		cfg.Library.Path = "/usr/local/var/lector/books"
	}
	if cfg.Library.Extensions == nil {
		cfg.Library.Extensions = []string{".txt", ".md", ".html", ".xhtml"}
	}
	// Watch defaults to true when unset (nil).
	if cfg.Library.Watch == nil {
		t := true
		cfg.Library.Watch = &t
	}
	if cfg.Search.ContextRadius == 0 {
		cfg.Search.ContextRadius = 150
	}
	if cfg.Search.RecentMax == 0 {
		cfg.Search.RecentMax = 5
	}
	if cfg.Reading.WordsPerPage == 0 {
		cfg.Reading.WordsPerPage = 250
	}
	if cfg.Reading.DefaultWPM == 0 {
		cfg.Reading.DefaultWPM = 200
	}
	if cfg.Translation.TimeoutMS == 0 {
		cfg.Translation.TimeoutMS = 10000
	}
	if cfg.Translation.CacheSize == 0 {
		cfg.Translation.CacheSize = 1024
	}
}
