package model

import (
	"time"
)

const (
	SenderSendmail = "sendmail"
	SenderSMTP     = "smtplib"
)

type Config struct {
	ConfigFile  string
	Hosts       []string
	Recipients  []string
	MailSender  MailSenderConfig
	Probe       ProbeConfig
	LogFile     string
	LogLevel    string
	MetricsFile string
	DryRun      bool
	Logger      func(string, ...interface{})
}

// MailSenderConfig selects how the report leaves the machine. Type is either
// SenderSendmail or SenderSMTP; Address only matters for the relay.
type MailSenderConfig struct {
	Type     string
	Address  string
	From     string
	Subject  string
	Sendmail string
}

type ProbeConfig struct {
	Count      int
	Timeout    time.Duration
	Native     bool
	Privileged bool
	UseIPv4    bool
	UseIPv6    bool
}
