package discovery

import "testing"

func TestBestAddress_GetBeforeSet(t *testing.T) {
	var slot BestAddress
	if _, ok := slot.Get(); ok {
		t.Fatal("expected no address before Set")
	}
}

func TestBestAddress_SetThenGet(t *testing.T) {
	var slot BestAddress
	slot.Set("192.168.1.50:9876")
	addr, ok := slot.Get()
	if !ok {
		t.Fatal("expected address after Set")
	}
	if addr != "192.168.1.50:9876" {
		t.Errorf("addr = %q, want %q", addr, "192.168.1.50:9876")
	}
}

func TestExtractDeviceID(t *testing.T) {
	cases := []struct {
		fields []string
		want   string
	}{
		{[]string{"device_id=abc123", "host=desktop"}, "abc123"},
		{[]string{"host=desktop"}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := extractDeviceID(c.fields); got != c.want {
			t.Errorf("extractDeviceID(%v) = %q, want %q", c.fields, got, c.want)
		}
	}
}

func TestBrowser_StopIsIdempotent(t *testing.T) {
	b := NewBrowser("peer-device", &BestAddress{}, nil)
	b.Stop()
	b.Stop() // must not panic or double-close stopCh
}
