package nmap

import (
	"strings"
	"testing"
)

const twoHostsXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE nmaprun>
<nmaprun scanner="nmap" args="nmap -sV -oX - example.com">
  <host>
    <address addr="93.184.216.34" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="80"><state state="open" reason="syn-ack"/><service name="http" product="nginx"/></port>
    </ports>
  </host>
  <host>
    <ports>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
    </ports>
  </host>
</nmaprun>`

func TestParse_TwoHosts(t *testing.T) {
	ports := Parse(twoHostsXML)

	if len(ports) != 2 {
		t.Fatalf("expected 2 port records, got %d (%v)", len(ports), ports)
	}
	for i, p := range ports {
		if p.Raw != "80/tcp open http" {
			t.Errorf("port %d: unexpected raw %q", i, p.Raw)
		}
		if p.Port != "80" || p.Protocol != "tcp" || p.State != "open" || p.Service != "http" {
			t.Errorf("port %d: unexpected record %+v", i, p)
		}
	}
}

func TestParse_MissingStateAndService(t *testing.T) {
	xml := `<nmaprun><host><ports><port protocol="tcp" portid="80"></port></ports></host></nmaprun>`

	ports := Parse(xml)

	if len(ports) != 1 {
		t.Fatalf("expected one record, got %v", ports)
	}
	if ports[0].Raw != "80/tcp  " {
		t.Fatalf("expected empty fields to keep their separators, got %q", ports[0].Raw)
	}
}

func TestParse_DocumentOrder(t *testing.T) {
	xml := `<nmaprun>
<host><ports>
  <port protocol="tcp" portid="443"><state state="open"/><service name="https"/></port>
  <port protocol="udp" portid="53"><state state="open|filtered"/><service name="domain"/></port>
</ports></host>
<host><port protocol="tcp" portid="22"><state state="closed"/></port></host>
</nmaprun>`

	ports := Parse(xml)

	want := []string{"443/tcp open https", "53/udp open|filtered domain", "22/tcp closed "}
	if len(ports) != len(want) {
		t.Fatalf("expected %d records, got %v", len(want), ports)
	}
	for i := range want {
		if ports[i].Raw != want[i] {
			t.Errorf("record %d: want %q, got %q", i, want[i], ports[i].Raw)
		}
	}
}

func TestParse_OnlyDirectChildrenOfPort(t *testing.T) {
	xml := `<nmaprun><host><port protocol="tcp" portid="443">
<script id="ssl-enum-ciphers"><table><elem key="state">ignored</elem><service name="nested"/></table></script>
<state state="open"/><service name="https"/>
</port></host></nmaprun>`

	ports := Parse(xml)

	if len(ports) != 1 || ports[0].Raw != "443/tcp open https" {
		t.Fatalf("unexpected records %v", ports)
	}
}

func TestParse_IgnoresPortsOutsideHosts(t *testing.T) {
	xml := `<nmaprun><port protocol="tcp" portid="1"/><runstats><host><port protocol="tcp" portid="2"/></host></runstats></nmaprun>`

	if ports := Parse(xml); len(ports) != 0 {
		t.Fatalf("expected ports outside top-level hosts to be ignored, got %v", ports)
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"not xml at all",
		"",
		`<nmaprun><host><port portid="80">`,
		`<nmaprun></nmaprun><extra/>`,
		`<nmaprun><host></nmaprun>`,
		`<nmaprun><host><port portid="80" protocol="tcp"/></host></nmaprun>garbage`,
		`junk<nmaprun><host><port portid="80" protocol="tcp"/></host></nmaprun>`,
	}
	for _, in := range inputs {
		ports := Parse(in)
		if ports == nil || len(ports) != 0 {
			t.Errorf("input %q: expected empty non-nil slice, got %v", in, ports)
		}
	}
}

func TestDecode_TrailingWhitespaceAllowed(t *testing.T) {
	ports, err := Decode(strings.NewReader("<nmaprun><host><port portid=\"80\" protocol=\"tcp\"/></host></nmaprun>\n\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ports) != 1 {
		t.Fatalf("expected one port, got %v", ports)
	}
}

func TestDecode_ReturnsError(t *testing.T) {
	if _, err := Decode(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("expected error for non-XML input")
	}
	ports, err := Decode(strings.NewReader("<nmaprun/>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ports) != 0 {
		t.Fatalf("expected no ports, got %v", ports)
	}
}
