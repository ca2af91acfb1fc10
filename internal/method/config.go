package method

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	DefaultConfigName = "host-checker.ini"
	DefaultSendmail   = "/usr/sbin/sendmail"
	DefaultSubject    = "HostChecker report"
	EnvPrefix         = "HOSTCHECKER"
)

var DefaultConfigPaths = []string{".", "/etc/host-checker"}

// ErrUnknownSender is returned when MailSender.Type names no known strategy.
var ErrUnknownSender = errors.New("unknown mail sender type")

type flagValues struct {
	configFile string
	hosts      string
	recipients string
	mailSender string
	dryRun     bool
	verbose    bool
}

// LoadConfig builds the run configuration from defaults, the ini file,
// HOSTCHECKER_* environment variables and finally the command line.
// pflag.ErrHelp is returned unchanged when -h was given.
func LoadConfig(args []string) (model.Config, error) {
	var fv flagValues
	fs := pflag.NewFlagSet("host-checker", pflag.ContinueOnError)
	fs.StringVarP(&fv.configFile, "config", "c", "", "path of the ini configuration file")
	fs.StringVarP(&fv.hosts, "hosts", "H", "", "comma separated hosts to check, replaces [General] Hosts")
	fs.StringVarP(&fv.recipients, "recipients", "r", "", "comma separated report recipients, replaces [General] Recipients")
	fs.StringVar(&fv.mailSender, "mail-sender", "", "mail sender type (sendmail or smtplib)")
	fs.BoolVarP(&fv.dryRun, "dry-run", "n", false, "print the report instead of sending it")
	fs.BoolVarP(&fv.verbose, "verbose", "v", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return model.Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	file, err := findConfigFile(fv.configFile)
	if err != nil {
		return model.Config{}, err
	}
	if file != "" {
		values, err := readIniFile(file)
		if err != nil {
			return model.Config{}, err
		}
		if err := v.MergeConfigMap(values); err != nil {
			return model.Config{}, fmt.Errorf("merge config %s: %w", file, err)
		}
	} else {
		Logger("WARN", "Config file not found, using defaults")
	}

	mergeEnv(v)

	cfg := model.Config{
		ConfigFile: file,
		Hosts:      SplitList(v.GetString("general.hosts")),
		Recipients: SplitList(v.GetString("general.recipients")),
		MailSender: model.MailSenderConfig{
			Type:     strings.ToLower(strings.TrimSpace(v.GetString("mailsender.type"))),
			Address:  v.GetString("mailsender.address"),
			From:     v.GetString("mailsender.from"),
			Subject:  v.GetString("mailsender.subject"),
			Sendmail: v.GetString("mailsender.sendmail"),
		},
		Probe: model.ProbeConfig{
			Count:      v.GetInt("probe.count"),
			Timeout:    time.Duration(v.GetInt("probe.timeout")) * time.Second,
			Native:     v.GetBool("probe.native"),
			Privileged: v.GetBool("probe.privileged"),
			UseIPv4:    v.GetBool("probe.ipv4"),
			UseIPv6:    v.GetBool("probe.ipv6"),
		},
		LogFile:     v.GetString("log.file"),
		LogLevel:    v.GetString("log.level"),
		MetricsFile: v.GetString("metrics.textfile"),
		DryRun:      fv.dryRun,
	}

	// Flags replace the file lists only when they carry something.
	if fs.Changed("hosts") && strings.TrimSpace(fv.hosts) != "" {
		cfg.Hosts = SplitList(fv.hosts)
	}
	if fs.Changed("recipients") && strings.TrimSpace(fv.recipients) != "" {
		cfg.Recipients = SplitList(fv.recipients)
	}
	if fs.Changed("mail-sender") && strings.TrimSpace(fv.mailSender) != "" {
		cfg.MailSender.Type = strings.ToLower(strings.TrimSpace(fv.mailSender))
	}
	if cfg.MailSender.Type == "" {
		cfg.MailSender.Type = model.SenderSendmail
	}
	if strings.TrimSpace(cfg.MailSender.Address) == "" {
		cfg.MailSender.Address = "localhost"
	}
	if fv.verbose {
		cfg.LogLevel = "debug"
	}

	switch cfg.MailSender.Type {
	case model.SenderSendmail, model.SenderSMTP:
	default:
		return model.Config{}, fmt.Errorf("%w: %q", ErrUnknownSender, cfg.MailSender.Type)
	}

	return cfg, nil
}

// mergeEnv lets HOSTCHECKER_<SECTION>_<KEY> override any known key. Values
// that are blank after trimming are ignored so they never clear the file.
func mergeEnv(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if val, ok := os.LookupEnv(name); ok && strings.TrimSpace(val) != "" {
			v.Set(key, val)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.hosts", "")
	v.SetDefault("general.recipients", "")
	v.SetDefault("mailsender.type", model.SenderSendmail)
	v.SetDefault("mailsender.address", "localhost")
	v.SetDefault("mailsender.from", defaultFrom())
	v.SetDefault("mailsender.subject", DefaultSubject)
	v.SetDefault("mailsender.sendmail", DefaultSendmail)
	v.SetDefault("probe.count", 5)
	v.SetDefault("probe.timeout", 30)
	v.SetDefault("probe.native", false)
	v.SetDefault("probe.privileged", false)
	v.SetDefault("probe.ipv4", true)
	v.SetDefault("probe.ipv6", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.textfile", "")
}

func defaultFrom() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return fmt.Sprintf("HostChecker <hostchecker@%s>", hostname)
}

// findConfigFile returns the explicit path when given, otherwise the first
// DefaultConfigName found in DefaultConfigPaths, or "" when there is none.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, dir := range DefaultConfigPaths {
		candidate := filepath.Join(dir, DefaultConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// readIniFile flattens the ini sections into the nested map viper expects.
// Empty values are skipped so they never shadow a default.
func readIniFile(path string) (map[string]interface{}, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	values := make(map[string]interface{})
	for _, section := range f.Sections() {
		keys := make(map[string]interface{})
		for _, key := range section.Keys() {
			if strings.TrimSpace(key.String()) == "" {
				continue
			}
			keys[strings.ToLower(key.Name())] = key.String()
		}
		if len(keys) == 0 {
			continue
		}
		name := strings.ToLower(section.Name())
		if name == strings.ToLower(ini.DefaultSection) {
			for k, val := range keys {
				values[k] = val
			}
			continue
		}
		values[name] = keys
	}
	return values, nil
}

// SplitList splits a comma separated value, trimming each element and
// dropping empty ones.
func SplitList(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
