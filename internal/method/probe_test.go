package method

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linuxPingOutput = `PING a.com (93.184.216.34) 56(84) bytes of data.

--- a.com ping statistics ---
5 packets transmitted, 5 received, 0% packet loss, time 4006ms
rtt min/avg/max/mdev = 11.021/12.345/14.002/1.002 ms
`

func TestInterpretPing_ZeroLoss(t *testing.T) {
	alive, msg := InterpretPing(linuxPingOutput, "", 0)
	assert.True(t, alive)
	assert.Empty(t, msg)
}

func TestInterpretPing_PartialLoss(t *testing.T) {
	alive, msg := InterpretPing("5 packets transmitted, 4 received, 20% packet loss, time 4005ms\n", "", 1)
	assert.False(t, alive)
	assert.Equal(t, "20% packet loss.", msg)
}

func TestInterpretPing_LossWithZeroExit(t *testing.T) {
	alive, msg := InterpretPing("5 packets transmitted, 4 received, 20% packet loss\n", "", 0)
	assert.False(t, alive)
	assert.Equal(t, "20% packet loss.", msg)
}

func TestInterpretPing_FractionalLoss(t *testing.T) {
	alive, msg := InterpretPing("5 packets transmitted, 4 packets received, 20.0% packet loss\n", "", 2)
	assert.False(t, alive)
	assert.Equal(t, "20.0% packet loss.", msg)

	alive, msg = InterpretPing("5 packets transmitted, 5 packets received, 0.0% packet loss\n", "", 0)
	assert.True(t, alive)
	assert.Empty(t, msg)
}

func TestInterpretPing_ExitWithoutLoss(t *testing.T) {
	alive, msg := InterpretPing("", "ping: unknown.invalid: Name or service not known\n", 2)
	assert.False(t, alive)
	assert.Equal(t, "stdout: , stderr: ping: unknown.invalid: Name or service not known", msg)
}

func TestInterpretPing_ZeroLossNonZeroExit(t *testing.T) {
	alive, msg := InterpretPing("0% packet loss", "", 1)
	assert.False(t, alive)
	assert.Equal(t, "stdout: 0% packet loss, stderr: ", msg)
}

func TestParseAverageRTT(t *testing.T) {
	avg, err := parseAverageRTT(linuxPingOutput)
	require.NoError(t, err)
	assert.InDelta(t, 12.345, avg, 0.0001)

	avg, err = parseAverageRTT("round-trip min/avg/max/stddev = 1.234/2.345/3.456/0.123 ms\n")
	require.NoError(t, err)
	assert.InDelta(t, 2.345, avg, 0.0001)

	avg, err = parseAverageRTT("    Minimum = 1ms, Maximum = 2ms, Average = 3ms\r\n")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 0.0001)

	_, err = parseAverageRTT("100% packet loss")
	assert.Error(t, err)
}

func TestSystemProberArgs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix ping flags")
	}

	p := &SystemProber{Config: model.ProbeConfig{Count: 5, UseIPv4: true, UseIPv6: true}}
	assert.Equal(t, []string{"-c", "5", "-q", "a.com"}, p.args("a.com"))

	p = &SystemProber{Config: model.ProbeConfig{UseIPv4: true}}
	assert.Equal(t, []string{"-c", "5", "-q", "-4", "a.com"}, p.args("a.com"))

	p = &SystemProber{Config: model.ProbeConfig{Count: 2, UseIPv6: true}}
	assert.Equal(t, []string{"-c", "2", "-q", "-6", "a.com"}, p.args("a.com"))
}

func fakePing(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for ping")
	}
	path := filepath.Join(t.TempDir(), "ping")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestSystemProber_Alive(t *testing.T) {
	bin := fakePing(t, "cat <<'OUT'\n"+linuxPingOutput+"OUT\n")
	p := &SystemProber{Binary: bin, Config: model.ProbeConfig{Count: 5, Timeout: 5 * time.Second}}

	r := p.Probe(context.Background(), "a.com")
	assert.Equal(t, "a.com", r.Host)
	assert.True(t, r.Alive)
	assert.Empty(t, r.Message)
	assert.InDelta(t, 12.345, float64(r.AvgRTT)/float64(time.Millisecond), 0.001)
}

func TestSystemProber_PacketLoss(t *testing.T) {
	bin := fakePing(t, "echo '5 packets transmitted, 4 received, 20% packet loss, time 4005ms'\nexit 1\n")
	p := &SystemProber{Binary: bin, Config: model.ProbeConfig{Count: 5}}

	r := p.Probe(context.Background(), "b.com")
	assert.False(t, r.Alive)
	assert.Equal(t, "20% packet loss.", r.Message)
}

func TestSystemProber_Stderr(t *testing.T) {
	bin := fakePing(t, "echo 'ping: b.invalid: Name or service not known' >&2\nexit 2\n")
	p := &SystemProber{Binary: bin}

	r := p.Probe(context.Background(), "b.invalid")
	assert.False(t, r.Alive)
	assert.Equal(t, "stdout: , stderr: ping: b.invalid: Name or service not known", r.Message)
}

func TestSystemProber_Timeout(t *testing.T) {
	bin := fakePing(t, "exec sleep 5\n")
	p := &SystemProber{Binary: bin, Config: model.ProbeConfig{Timeout: 100 * time.Millisecond}}

	start := time.Now()
	r := p.Probe(context.Background(), "slow.example")
	assert.False(t, r.Alive)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestSystemProber_MissingBinary(t *testing.T) {
	p := &SystemProber{Binary: filepath.Join(t.TempDir(), "no-such-ping")}

	r := p.Probe(context.Background(), "a.com")
	assert.False(t, r.Alive)
	assert.Contains(t, r.Message, "ping could not be started")
}

type fakeProber struct {
	mu      sync.Mutex
	results map[string]model.ProbeResult
	seen    []string
}

func (f *fakeProber) Probe(_ context.Context, host string) model.ProbeResult {
	f.mu.Lock()
	f.seen = append(f.seen, host)
	f.mu.Unlock()

	if r, ok := f.results[host]; ok {
		r.Host = host
		return r
	}
	return model.ProbeResult{Host: host, Alive: true}
}

func TestProbeAll_KeepsHostOrder(t *testing.T) {
	prober := &fakeProber{results: map[string]model.ProbeResult{
		"b.com": {Message: "20% packet loss."},
	}}
	hosts := []string{"a.com", "b.com", "c.com"}

	results := ProbeAll(context.Background(), prober, hosts)
	require.Len(t, results, 3)
	for i, host := range hosts {
		assert.Equal(t, host, results[i].Host)
	}
	assert.True(t, results[0].Alive)
	assert.False(t, results[1].Alive)
	assert.ElementsMatch(t, hosts, prober.seen)
}

type contextProber struct{}

func (contextProber) Probe(ctx context.Context, host string) model.ProbeResult {
	if err := ctx.Err(); err != nil {
		return model.ProbeResult{Host: host, Message: err.Error()}
	}
	return model.ProbeResult{Host: host, Alive: true}
}

func TestProbeAll_PassesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ProbeAll(ctx, contextProber{}, []string{"a.com", "b.com"})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Alive)
		assert.Equal(t, context.Canceled.Error(), r.Message)
	}

	results = ProbeAll(context.Background(), contextProber{}, []string{"a.com"})
	assert.True(t, results[0].Alive)
}

func TestProbeAll_NoHosts(t *testing.T) {
	assert.Empty(t, ProbeAll(context.Background(), &fakeProber{}, nil))
}

func TestNativeResult(t *testing.T) {
	r := nativeResult("a.com", 5, 0, 3*time.Millisecond)
	assert.True(t, r.Alive)
	assert.Equal(t, 3*time.Millisecond, r.AvgRTT)

	r = nativeResult("a.com", 5, 20, 0)
	assert.False(t, r.Alive)
	assert.Equal(t, "20% packet loss.", r.Message)

	r = nativeResult("a.com", 3, 33.33333333333333, 0)
	assert.Equal(t, "33.33333333333333% packet loss.", r.Message)

	r = nativeResult("a.com", 0, 0, 0)
	assert.False(t, r.Alive)
}

func TestNetworkFor(t *testing.T) {
	assert.Equal(t, "ip", networkFor(model.ProbeConfig{UseIPv4: true, UseIPv6: true}))
	assert.Equal(t, "ip", networkFor(model.ProbeConfig{}))
	assert.Equal(t, "ip4", networkFor(model.ProbeConfig{UseIPv4: true}))
	assert.Equal(t, "ip6", networkFor(model.ProbeConfig{UseIPv6: true}))
}

func TestNativeProber_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &NativeProber{Config: model.ProbeConfig{Count: 100, Timeout: time.Minute}}

	start := time.Now()
	r := p.Probe(ctx, "unresolvable.invalid")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "unresolvable.invalid", r.Host)
	assert.False(t, r.Alive)
	assert.Contains(t, r.Message, "probe cancelled")
}

func TestNativeProber_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p := &NativeProber{Config: model.ProbeConfig{Count: 1000, Timeout: time.Minute, UseIPv4: true}}

	start := time.Now()
	r := p.Probe(ctx, "127.0.0.1")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "127.0.0.1", r.Host)
}

func TestNewProber(t *testing.T) {
	assert.IsType(t, &SystemProber{}, NewProber(model.ProbeConfig{}))
	assert.IsType(t, &NativeProber{}, NewProber(model.ProbeConfig{Native: true}))
}
