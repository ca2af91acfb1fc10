package method

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
	"github.com/go-ping/ping"
	"golang.org/x/sync/errgroup"
)

// Prober checks a single host. Implementations never return an error: every
// failure ends up in the result message.
type Prober interface {
	Probe(ctx context.Context, host string) model.ProbeResult
}

var packetLossRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)% packet loss`)

// ProbeAll starts one probe per host and waits for all of them. Results keep
// the order of hosts.
func ProbeAll(ctx context.Context, prober Prober, hosts []string) []model.ProbeResult {
	results := make([]model.ProbeResult, len(hosts))

	// Probes report failures in their results, never as errors, so one host
	// going down does not cancel the others; the parent ctx still reaches all.
	g, gctx := errgroup.WithContext(ctx)
	for i, host := range hosts {
		g.Go(func() error {
			results[i] = prober.Probe(gctx, host)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func NewProber(cfg model.ProbeConfig) Prober {
	if cfg.Native {
		return &NativeProber{Config: cfg}
	}
	return &SystemProber{Binary: "ping", Config: cfg}
}

// SystemProber runs the platform ping binary in quiet mode, one process per host.
type SystemProber struct {
	Binary string
	Config model.ProbeConfig
}

func (p *SystemProber) Probe(ctx context.Context, host string) model.ProbeResult {
	if p.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Binary, p.args(host)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return model.ProbeResult{Host: host, Message: fmt.Sprintf("ping could not be started: %v", err)}
		}
		exitCode = exitErr.ExitCode()
	}

	alive, msg := InterpretPing(stdout.String(), stderr.String(), exitCode)
	result := model.ProbeResult{Host: host, Alive: alive, Message: msg}
	if avg, err := parseAverageRTT(stdout.String()); err == nil {
		result.AvgRTT = time.Duration(avg * float64(time.Millisecond))
	}
	return result
}

func (p *SystemProber) args(host string) []string {
	count := p.Config.Count
	if count <= 0 {
		count = 5
	}

	var args []string
	switch runtime.GOOS {
	case "windows":
		args = []string{"-n", strconv.Itoa(count)}
	default: // Linux, macOS and other unix-like system
		args = []string{"-c", strconv.Itoa(count), "-q"}
	}

	switch networkFor(p.Config) {
	case "ip4":
		args = append(args, "-4")
	case "ip6":
		args = append(args, "-6")
	}

	return append(args, host)
}

// networkFor maps the address family switches to a go-ping network name.
// Both or neither enabled leaves the choice to the resolver.
func networkFor(cfg model.ProbeConfig) string {
	switch {
	case cfg.UseIPv4 && !cfg.UseIPv6:
		return "ip4"
	case cfg.UseIPv6 && !cfg.UseIPv4:
		return "ip6"
	}
	return "ip"
}

// InterpretPing decides whether a ping run means the host is up. Any reported
// packet loss other than zero is a failure, otherwise the exit status decides.
func InterpretPing(stdout, stderr string, exitCode int) (bool, string) {
	if m := packetLossRe.FindStringSubmatch(stdout); m != nil {
		loss, err := strconv.ParseFloat(m[1], 64)
		if err == nil && loss != 0 {
			return false, fmt.Sprintf("%s%% packet loss.", m[1])
		}
	}

	if exitCode != 0 {
		return false, fmt.Sprintf("stdout: %s, stderr: %s", strings.TrimSpace(stdout), strings.TrimSpace(stderr))
	}
	return true, ""
}

// parseAverageRTT returns the average round trip in milliseconds.
func parseAverageRTT(output string) (float64, error) {
	lines := strings.Split(output, "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]

		// "rtt min/avg/max/mdev = 1.234/2.345/3.456/0.123 ms"
		if strings.Contains(line, "round-trip") || strings.Contains(line, "rtt") {
			for _, part := range strings.Fields(line) {
				stats := strings.Split(part, "/")
				if len(stats) >= 4 {
					if avg, err := strconv.ParseFloat(stats[1], 64); err == nil {
						return avg, nil
					}
				}
			}
		}

		// "Minimum = 1ms, Maximum = 2ms, Average = 3ms"
		if strings.Contains(line, "Average =") {
			parts := strings.Fields(line)
			for j, part := range parts {
				if part == "Average" && j+2 < len(parts) {
					if avg, err := strconv.ParseFloat(strings.TrimSuffix(parts[j+2], "ms"), 64); err == nil {
						return avg, nil
					}
				}
			}
		}
	}

	return 0, errors.New("no round-trip summary in ping output")
}

// NativeProber pings from inside the process instead of spawning ping.
type NativeProber struct {
	Config model.ProbeConfig
}

func (p *NativeProber) Probe(ctx context.Context, host string) model.ProbeResult {
	if err := ctx.Err(); err != nil {
		return model.ProbeResult{Host: host, Message: fmt.Sprintf("probe cancelled: %v", err)}
	}

	pinger := ping.New(host)
	pinger.Count = p.Config.Count
	if pinger.Count <= 0 {
		pinger.Count = 5
	}
	if p.Config.Timeout > 0 {
		pinger.Timeout = p.Config.Timeout
	}
	pinger.SetPrivileged(p.Config.Privileged)
	pinger.SetNetwork(networkFor(p.Config))
	if err := pinger.Resolve(); err != nil {
		return model.ProbeResult{Host: host, Message: fmt.Sprintf("resolve failed: %v", err)}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return model.ProbeResult{Host: host, Message: fmt.Sprintf("ping failed: %v", err)}
	}

	stats := pinger.Statistics()
	return nativeResult(host, stats.PacketsSent, stats.PacketLoss, stats.AvgRtt)
}

func nativeResult(host string, sent int, loss float64, avg time.Duration) model.ProbeResult {
	if sent == 0 {
		return model.ProbeResult{Host: host, Message: "no packets sent"}
	}
	if loss != 0 {
		return model.ProbeResult{
			Host:    host,
			Message: fmt.Sprintf("%s%% packet loss.", strconv.FormatFloat(loss, 'f', -1, 64)),
			AvgRTT:  avg,
		}
	}
	return model.ProbeResult{Host: host, Alive: true, AvgRTT: avg}
}
