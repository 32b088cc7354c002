package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/loykin/initup/internal/logger"
	"github.com/loykin/initup/internal/process"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment-sourced setting, so the
// startup command template lives in INITUP_STARTUP_CMD and so on.
const EnvPrefix = "INITUP"

// ProbeInterval is the fixed delay between readiness attempts. Probe
// budgets in this package are expressed as attempt counts against it.
const ProbeInterval = 500 * time.Millisecond

// Documented defaults.
const (
	DefaultControlHost     = "127.0.0.1"
	DefaultControlPort     = 8600
	DefaultPrestartTimeout = 300 // seconds
	DefaultDataDir         = "/var/lib/initup"
)

// ConfigError reasons.
const (
	ConflictingFlags      = "conflicting_flags"
	MissingStartupCommand = "missing_startup_command"
)

// ConfigError is a fatal configuration problem, surfaced before any process
// is spawned.
type ConfigError struct {
	Reason string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return "config error: " + e.Reason
	}
	return fmt.Sprintf("config error: %s: %s", e.Reason, e.Detail)
}

// Mode selects how (and whether) the primary workload is prestarted in the
// background before the final handoff.
type Mode int

const (
	// ModeNone runs the primary workload only via the final handoff.
	ModeNone Mode = iota
	// ModeServer prestarts the startup command itself so a control client
	// can attach before handoff.
	ModeServer
	// ModeLegacy prestarts through the legacy interpreter toolchain.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "server"
	case ModeLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Primary describes the primary workload's launch.
type Primary struct {
	Command         string // final handoff command, template-rewritten
	PrestartCommand string // command the background prestart runs
	ControlHost     string
	ControlPort     int
	Timeout         time.Duration // control-port readiness ceiling
	Mode            Mode
}

// Plan is the fully-resolved, immutable bring-up plan: dependency services
// in start order plus the primary workload descriptor.
type Plan struct {
	Services        []process.Spec
	Primary         Primary
	DataDir         string
	JournalDSN      string
	MetricsTextfile string
}

// catalogEntry is a built-in dependency service definition. Everything in
// it can be overridden per dependency via INITUP_<NAME>_* settings.
type catalogEntry struct {
	name     string
	command  string
	port     int
	attempts int
	optional bool
}

// Dependencies start strictly in this order: later entries may assume
// earlier ones are reachable.
var catalog = []catalogEntry{
	{name: "store", command: "store-server", port: 9000, attempts: 60, optional: false},
	{name: "broker", command: "broker-server", port: 5672, attempts: 120, optional: true},
}

// ParseBool decodes boolean-like configuration input. The accepted true set
// is fixed and case-insensitive; every other value is false, never an
// error, so an unrecognized flag value cannot break an unattended start.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

var templateToken = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// RewriteTemplate rewrites {{VAR}} placeholders into the shell's ${VAR}
// expansion syntax. The rewrite happens once at resolution; the plan stores
// the resulting literal command string.
func RewriteTemplate(cmd string) string {
	return templateToken.ReplaceAllString(cmd, "${$1}")
}

// Resolve reads the INITUP_* environment and produces a validated Plan.
func Resolve() (*Plan, error) {
	return resolve(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("startup_cmd", "")
	v.SetDefault("legacy_cmd", "")
	v.SetDefault("control_host", DefaultControlHost)
	v.SetDefault("control_port", DefaultControlPort)
	v.SetDefault("prestart_timeout", DefaultPrestartTimeout)
	v.SetDefault("prestart_server", false)
	v.SetDefault("prestart_legacy", false)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("journal_dsn", "")
	v.SetDefault("metrics_textfile", "")
	for _, e := range catalog {
		v.SetDefault("start_"+e.name, false)
		v.SetDefault(e.name+"_cmd", e.command)
		v.SetDefault(e.name+"_host", DefaultControlHost)
		v.SetDefault(e.name+"_port", e.port)
		v.SetDefault(e.name+"_extra_args", "")
		v.SetDefault(e.name+"_clean_log", false)
		v.SetDefault(e.name+"_optional", e.optional)
		v.SetDefault(e.name+"_probe_attempts", e.attempts)
	}
}

func resolve(v *viper.Viper) (*Plan, error) {
	prestartServer := ParseBool(v.GetString("prestart_server"))
	prestartLegacy := ParseBool(v.GetString("prestart_legacy"))
	// Mutual exclusion runs before anything else: no side effect may
	// precede this failure.
	if prestartServer && prestartLegacy {
		return nil, &ConfigError{
			Reason: ConflictingFlags,
			Detail: "INITUP_PRESTART_SERVER and INITUP_PRESTART_LEGACY are mutually exclusive",
		}
	}

	dataDir := v.GetString("data_dir")
	startup := RewriteTemplate(strings.TrimSpace(v.GetString("startup_cmd")))
	legacy := RewriteTemplate(strings.TrimSpace(v.GetString("legacy_cmd")))

	mode := ModeNone
	prestartCmd := ""
	switch {
	case prestartServer:
		mode = ModeServer
		prestartCmd = startup
	case prestartLegacy:
		mode = ModeLegacy
		prestartCmd = legacy
		if prestartCmd == "" {
			prestartCmd = startup
		}
	}
	if mode != ModeNone && prestartCmd == "" {
		return nil, &ConfigError{
			Reason: MissingStartupCommand,
			Detail: fmt.Sprintf("prestart mode %q selected but no command configured", mode),
		}
	}

	plan := &Plan{
		Primary: Primary{
			Command:         startup,
			PrestartCommand: prestartCmd,
			ControlHost:     v.GetString("control_host"),
			ControlPort:     v.GetInt("control_port"),
			Timeout:         time.Duration(v.GetInt("prestart_timeout")) * time.Second,
			Mode:            mode,
		},
		DataDir:         dataDir,
		JournalDSN:      v.GetString("journal_dsn"),
		MetricsTextfile: v.GetString("metrics_textfile"),
	}

	for _, e := range catalog {
		if !ParseBool(v.GetString("start_" + e.name)) {
			continue
		}
		plan.Services = append(plan.Services, serviceSpec(v, e, dataDir))
	}
	return plan, nil
}

func serviceSpec(v *viper.Viper, e catalogEntry, dataDir string) process.Spec {
	host := v.GetString(e.name + "_host")
	port := v.GetInt(e.name + "_port")
	return process.Spec{
		Name:          e.name,
		Command:       fmt.Sprintf("%s --bind %s --port %d", v.GetString(e.name+"_cmd"), host, port),
		ExtraArgs:     v.GetString(e.name + "_extra_args"),
		Host:          host,
		Port:          port,
		WorkDir:       filepath.Join(dataDir, e.name),
		PIDFile:       filepath.Join(dataDir, "run", e.name+".pid"),
		Optional:      ParseBool(v.GetString(e.name + "_optional")),
		CleanLog:      ParseBool(v.GetString(e.name + "_clean_log")),
		Log:           logger.Config{Dir: filepath.Join(dataDir, "log")},
		ProbeAttempts: v.GetInt(e.name + "_probe_attempts"),
		ProbeInterval: ProbeInterval,
	}
}
