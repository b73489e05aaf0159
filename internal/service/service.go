package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Kind identifies one of the two managed services.
type Kind int

const (
	// Web is the Streamlit dashboard.
	Web Kind = iota
	// CLIMonitor is the background command-line monitor.
	CLIMonitor
)

func (k Kind) String() string {
	switch k {
	case Web:
		return "web"
	case CLIMonitor:
		return "cli-monitor"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds lists all managed service kinds in display order.
func Kinds() []Kind { return []Kind{Web, CLIMonitor} }

// Descriptor is the static configuration of one managed service.
// One instance exists per Kind; it is immutable once built.
type Descriptor struct {
	Kind    Kind
	Name    string
	Command string // launch command, run detached with combined output to LogFile
	Pattern string // process-table fallback discovery pattern
	PIDFile string
	LogFile string
	Port    int // 0 when the service does not listen
}

// Settings carries the resolved supervisor configuration. Defaults are
// registered on a viper instance so CLI flags can override them; there is
// no configuration file.
type Settings struct {
	BaseDir string // install directory; pidfiles, logs and the entry script live under it
	Python  string // python interpreter; resolved from PATH when empty
	Entry   string // monitored application entry script, relative to BaseDir when not absolute
	Port    int    // web dashboard listen port
}

const (
	defaultEntry = "taoli.py"
	defaultPort  = 8501
)

// RegisterDefaults seeds the viper instance with the supervisor defaults.
func RegisterDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", executableDir())
	v.SetDefault("python", "")
	v.SetDefault("entry", defaultEntry)
	v.SetDefault("port", defaultPort)
}

// FromViper builds Settings from a viper instance previously seeded with
// RegisterDefaults (and possibly overridden by bound flags).
func FromViper(v *viper.Viper) Settings {
	return Settings{
		BaseDir: v.GetString("base_dir"),
		Python:  v.GetString("python"),
		Entry:   v.GetString("entry"),
		Port:    v.GetInt("port"),
	}
}

// executableDir resolves the directory of the running binary so state stays
// relative to the install location. Falls back to the working directory.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// EntryPath returns the absolute path of the monitored application's entry script.
func (s Settings) EntryPath() string {
	if filepath.IsAbs(s.Entry) {
		return s.Entry
	}
	return filepath.Join(s.BaseDir, s.Entry)
}

// RunDir is where pidfiles are kept.
func (s Settings) RunDir() string { return filepath.Join(s.BaseDir, "run") }

// LogDir is where the per-service log files are kept.
func (s Settings) LogDir() string { return filepath.Join(s.BaseDir, "logs") }

// JournalPath is the sqlite action journal location.
func (s Settings) JournalPath() string { return filepath.Join(s.BaseDir, "taolictl.db") }

// Descriptor builds the static descriptor for a service kind. The python
// interpreter must already be resolved (see bootstrap.EnsurePython).
func (s Settings) Descriptor(k Kind) Descriptor {
	entry := s.EntryPath()
	switch k {
	case Web:
		return Descriptor{
			Kind: Web,
			Name: "web",
			Command: fmt.Sprintf("%s -m streamlit run %s --server.port %d --server.address 0.0.0.0 --server.headless true",
				s.Python, entry, s.Port),
			Pattern: fmt.Sprintf("streamlit run %s", entry),
			PIDFile: filepath.Join(s.RunDir(), "web.pid"),
			LogFile: filepath.Join(s.LogDir(), "web.log"),
			Port:    s.Port,
		}
	case CLIMonitor:
		return Descriptor{
			Kind:    CLIMonitor,
			Name:    "cli-monitor",
			Command: fmt.Sprintf("%s %s cli", s.Python, entry),
			Pattern: fmt.Sprintf("%s cli", entry),
			PIDFile: filepath.Join(s.RunDir(), "cli-monitor.pid"),
			LogFile: filepath.Join(s.LogDir(), "cli-monitor.log"),
		}
	default:
		return Descriptor{Kind: k}
	}
}

// URL returns the local access URL for the web dashboard.
func (s Settings) URL() string { return fmt.Sprintf("http://localhost:%d", s.Port) }
