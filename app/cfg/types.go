package cfg

type Cfg struct {
	// Secret credentials injected per run (names fixed by the deployment
	// environment, values opaque)
	EmailTo      string
	EmailFrom    string
	EmailPass    string
	GoogleAPIKey string
	GoogleCSEID  string
	SerpAPIKey   string

	// Scheduling configuration
	Schedule      string
	OverlapPolicy string
	JobTimeout    int

	// Application configuration
	OrgsDir      string
	DBPath       string
	Port         string
	APIAccessKey string

	// Email delivery configuration
	SMTPHost string
	SMTPPort int

	// External program mode (empty command disables it)
	ExecCommand    string
	ExecArgs       []string
	ExecSourceDir  string
	RuntimeBin     string
	RuntimeVersion string
	InstallCommand string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
