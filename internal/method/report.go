package method

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
	"github.com/google/uuid"
)

// BuildReportBody renders the plain text summary of one pass. Failed hosts are
// listed in the order they were checked.
func BuildReportBody(hosts []string, results []model.ProbeResult) string {
	var buf bytes.Buffer

	buf.WriteString("HostChecker report\n\n")
	buf.WriteString("HostChecker has checked the following hosts:\n")
	lines := make([]string, 0, len(hosts))
	for _, host := range hosts {
		lines = append(lines, " - "+host)
	}
	buf.WriteString(strings.Join(lines, "\n"))
	buf.WriteString("\n\n")

	failures := 0
	for _, r := range results {
		if r.Alive {
			continue
		}
		failures++
		fmt.Fprintf(&buf, " - %s failed with the following error: %s\n", r.Host, r.Message)
	}
	if failures == 0 {
		buf.WriteString("All hosts are up.")
	}

	buf.WriteString("\n\nBest regards,\nHostChecker")
	return buf.String()
}

// NewMessageID returns a Message-ID value whose domain is taken from the
// sender address.
func NewMessageID(from string) string {
	domain := "localhost"
	addr := envelopeAddress(from)
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		domain = addr[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// BuildMessage writes the report as an RFC 5322 message with a text/plain body.
// A zero Date or empty MessageID is filled in at build time.
func BuildMessage(report model.Report) []byte {
	date := report.Date
	if date.IsZero() {
		date = time.Now()
	}
	messageID := report.MessageID
	if messageID == "" {
		messageID = NewMessageID(report.From)
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", report.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(report.Recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", report.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(report.Body, "\n", "\r\n"))

	return buf.Bytes()
}
