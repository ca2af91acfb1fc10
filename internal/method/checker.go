package method

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
)

// Run performs one pass: probe every host, log the outcome and deliver the
// report. A delivery error is returned as is; the caller treats it as fatal.
func Run(ctx context.Context, cfg model.Config) error {
	sender, err := NewSender(cfg.MailSender)
	if err != nil {
		return err
	}
	return RunWith(ctx, cfg, NewProber(cfg.Probe), sender)
}

func RunWith(ctx context.Context, cfg model.Config, prober Prober, sender Sender) error {
	Logger = DefaultLogger
	if cfg.Logger != nil {
		Logger = cfg.Logger
	}

	if len(cfg.Hosts) == 0 {
		Logger("WARN", "No hosts configured")
	}

	results := ProbeAll(ctx, prober, cfg.Hosts)
	for _, r := range results {
		if r.Alive {
			Logger("INFO", "Host ", r.Host, " is alive")
		} else {
			Logger("WARN", "Check host ", r.Host, " failed: ", r.Message)
		}
	}

	if cfg.MetricsFile != "" {
		if err := WriteMetrics(cfg.MetricsFile, results, time.Now()); err != nil {
			Logger("ERROR", "Writing metrics to ", cfg.MetricsFile, " failed: ", err)
		}
	}

	report := model.Report{
		From:       cfg.MailSender.From,
		Recipients: cfg.Recipients,
		Subject:    cfg.MailSender.Subject,
		Body:       BuildReportBody(cfg.Hosts, results),
		Date:       time.Now(),
		MessageID:  NewMessageID(cfg.MailSender.From),
	}
	if report.Subject == "" {
		report.Subject = DefaultSubject
	}

	if cfg.DryRun {
		_, err := os.Stdout.Write(BuildMessage(report))
		return err
	}

	if len(report.Recipients) == 0 {
		Logger("WARN", "No recipients configured, report not sent")
		return nil
	}

	Logger("DEBUG", "Sending report via ", cfg.MailSender.Type, " to ", len(report.Recipients), " recipient(s)")
	if err := sender.Send(ctx, report); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	Logger("INFO", "Report sent to ", len(report.Recipients), " recipient(s)")

	return nil
}
