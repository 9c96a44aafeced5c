package config

import "testing"

func TestDefault(t *testing.T) {
	d := Default()

	if d.Workers != 8 {
		t.Errorf("Workers = %d, want 8", d.Workers)
	}
	if d.MaxQueued != 10000 {
		t.Errorf("MaxQueued = %d, want 10000", d.MaxQueued)
	}
	if d.ReadBufferSize != 2048 {
		t.Errorf("ReadBufferSize = %d, want 2048", d.ReadBufferSize)
	}
	if d.WriteBufferSize != 1024 {
		t.Errorf("WriteBufferSize = %d, want 1024", d.WriteBufferSize)
	}
	if d.MaxPathLen != 200 {
		t.Errorf("MaxPathLen = %d, want 200", d.MaxPathLen)
	}
}

func TestWithDefaultsPreservesExplicitFields(t *testing.T) {
	c := Config{DocRoot: "/srv/www", Workers: 4}
	c = c.WithDefaults()

	if c.DocRoot != "/srv/www" {
		t.Errorf("DocRoot = %q, want /srv/www", c.DocRoot)
	}
	if c.Workers != 4 {
		t.Errorf("Workers = %d, want 4 (explicit value clobbered)", c.Workers)
	}
	if c.MaxQueued != 10000 {
		t.Errorf("MaxQueued = %d, want default 10000", c.MaxQueued)
	}
}
