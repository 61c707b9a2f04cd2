package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"principal_auth", "auth.operation", "principal_auth.auth.operation"},
		{"", " auth/duration ", "auth_duration"},
		{"p", "foo..bar", "p.foo.bar"},
		{"p", "a:b|c", "p.a_b_c"},
		{"p", "  ", ""},
		{"p", "..", ""},
	}

	for _, tt := range tests {
		if got := metricName(tt.prefix, tt.name); got != tt.want {
			t.Errorf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestLineMergesAndSortsTags(t *testing.T) {
	t.Parallel()

	c := &Client{
		prefix:     "principal_auth",
		globalTags: cleanTags(map[string]string{"env": "prod", " service ": " authd "}),
	}

	got := c.line("auth.operation", "1", "c", map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	})
	want := "principal_auth.auth.operation:1|c|#env:stage,result:success,service:authd"
	if got != want {
		t.Fatalf("line mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestLineWithoutTags(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if got := c.line("auth.duration", "1.5", "ms", nil); got != "auth.duration:1.5|ms" {
		t.Fatalf("unexpected line %q", got)
	}
	if got := c.line("", "1", "c", nil); got != "" {
		t.Fatalf("expected empty line for empty name, got %q", got)
	}
}

func TestCleanTagsEscapesDelimiters(t *testing.T) {
	t.Parallel()

	got := cleanTags(map[string]string{"reason": "a|b,c#d"})
	if got["reason"] != "a_b_c_d" {
		t.Fatalf("unexpected tag value %q", got["reason"])
	}
	if cleanTags(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestClientSendsDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: ".pa."})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if !client.Enabled() {
		t.Fatal("expected enabled client")
	}

	client.Count("auth.operation", 1, map[string]string{"kind": "user"})
	client.Timing("auth.duration", 1500*time.Microsecond, nil)

	want := []string{"pa.auth.operation:1|c|#kind:user", "pa.auth.duration:1.5|ms"}
	buf := make([]byte, 512)
	for _, w := range want {
		_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read datagram: %v", err)
		}
		if got := string(buf[:n]); got != w {
			t.Fatalf("datagram = %q, want %q", got, w)
		}
	}
}

func TestClientClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected Enabled with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected disabled after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	client.Count("after.close", 1, nil)

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{{Enabled: true, Address: "   "}, {Enabled: false, Address: "127.0.0.1:8125"}} {
		client, err := NewClient(cfg)
		if err != nil {
			t.Fatalf("NewClient error: %v", err)
		}
		if client.Enabled() {
			t.Fatalf("expected disabled client for %+v", cfg)
		}
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
