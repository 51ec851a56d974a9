package mysqlpool

import (
	"testing"

	"github.com/despegar/galera-go-client/pkg/galera"
)

func TestWsrepSyncWait(t *testing.T) {
	cases := []struct {
		consistency string
		want        int
		ok          bool
	}{
		{"", 0, false},
		{"read", 1, true},
		{"write", 6, true},
		{"strict", 7, true},
		{"bogus", 0, false},
	}
	for _, c := range cases {
		got, ok := wsrepSyncWait(c.consistency)
		if got != c.want || ok != c.ok {
			t.Errorf("wsrepSyncWait(%q) = (%d, %t), want (%d, %t)", c.consistency, got, ok, c.want, c.ok)
		}
	}
}

func TestParseState(t *testing.T) {
	cases := map[string]galera.State{
		"Synced":         galera.StateSynced,
		"Donor/Desynced": galera.StateDonor,
		"Donor":          galera.StateDonor,
		"Joining":        galera.StateJoining,
		"Joined":         galera.StateJoined,
		"Desynced":       galera.StateDesynced,
		"":               galera.StateError,
		"garbage":        galera.StateError,
	}
	for comment, want := range cases {
		if got := parseState(comment); got != want {
			t.Errorf("parseState(%q) = %v, want %v", comment, got, want)
		}
	}
}

func TestDSNQueryParams(t *testing.T) {
	cases := []struct {
		dsn    string
		params []string
		want   string
	}{
		{"user:pass@tcp(%s)/db", nil, ""},
		{"user:pass@tcp(%s)/db", []string{"tls=galera-n1"}, "?tls=galera-n1"},
		{"user:pass@tcp(%s)/db?timeout=5s", []string{"tls=galera-n1"}, "&tls=galera-n1"},
		{"user:pass@tcp(%s)/db", []string{"readTimeout=5s", "tls=galera-n1"}, "?readTimeout=5s&tls=galera-n1"},
	}
	for _, c := range cases {
		if got := dsnQueryParams(c.dsn, c.params); got != c.want {
			t.Errorf("dsnQueryParams(%q, %v) = %q, want %q", c.dsn, c.params, got, c.want)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	if o.MaxConnectionsPerHost != 20 {
		t.Errorf("MaxConnectionsPerHost default = %d, want 20", o.MaxConnectionsPerHost)
	}
	if o.InternalMaxOpen != 8 || o.InternalMaxIdle != 4 {
		t.Errorf("internal pool defaults = %d/%d, want 8/4", o.InternalMaxOpen, o.InternalMaxIdle)
	}
	if o.DSNSeparator != "/" {
		t.Errorf("DSNSeparator default = %q, want %q", o.DSNSeparator, "/")
	}
	if o.ConnectionTimeout <= 0 {
		t.Errorf("ConnectionTimeout default = %v, want > 0", o.ConnectionTimeout)
	}
}

func TestDSNTemplatePrefersExplicitDSN(t *testing.T) {
	o := Options{DSN: "custom:tpl@tcp(%s)/x", User: "u", Password: "p", Database: "d"}
	o.setDefaults()
	if got := o.dsnTemplate(); got != "custom:tpl@tcp(%s)/x" {
		t.Errorf("dsnTemplate() = %q, want explicit DSN unchanged", got)
	}
}

func TestDSNTemplateBuiltFromParts(t *testing.T) {
	o := Options{User: "app", Password: "secret", Database: "orders", DSNSeparator: "/"}
	o.setDefaults()
	want := "app:secret@tcp(%s)/orders"
	if got := o.dsnTemplate(); got != want {
		t.Errorf("dsnTemplate() = %q, want %q", got, want)
	}
}
