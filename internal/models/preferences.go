package models

// Reading themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeSepia = "sepia"
)

// Font size bounds and step, in rem units.
const (
	FontSizeMin  = 0.8
	FontSizeMax  = 2.0
	FontSizeStep = 0.1
)

// Preferences holds the reading display settings consumed by rendering.
type Preferences struct {
	Theme          string  `json:"theme"`
	FontSize       float64 `json:"fontSize"`
	FontFamily     string  `json:"fontFamily"`
	LineHeight     float64 `json:"lineHeight"`
	TextAlign      string  `json:"textAlign"`
	ColumnWidth    string  `json:"columnWidth"`
	AutoSave       bool    `json:"autoSave"`
	ReadingSpeed   int     `json:"readingSpeed"` // words per minute
	HighlightColor string  `json:"highlightColor"`
	Language       string  `json:"language"`
	AutoTranslate  bool    `json:"autoTranslate"`
	SyncScroll     bool    `json:"syncScroll"`
	Animations     bool    `json:"animations"`
	SoundEffects   bool    `json:"soundEffects"`
}

// DefaultPreferences returns the complete default settings record.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:          ThemeLight,
		FontSize:       1.1,
		FontFamily:     "'Merriweather', serif",
		LineHeight:     1.8,
		TextAlign:      "justify",
		ColumnWidth:    "single",
		AutoSave:       true,
		ReadingSpeed:   200,
		HighlightColor: "#ffeb3b",
		Language:       "es",
		AutoTranslate:  false,
		SyncScroll:     true,
		Animations:     true,
		SoundEffects:   false,
	}
}
