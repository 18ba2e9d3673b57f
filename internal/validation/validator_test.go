package validation

import "testing"

func TestValidateChannelName(t *testing.T) {
	valid := []string{"#go", "&local", "+open", "!ABCDEchan"}
	for _, name := range valid {
		if err := ValidateChannelName(name); err != nil {
			t.Errorf("ValidateChannelName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "go", "#go rust", "#go,#rust", "#go\x07"}
	for _, name := range invalid {
		if err := ValidateChannelName(name); err == nil {
			t.Errorf("ValidateChannelName(%q) = nil, want error", name)
		}
	}
}

func TestValidateNick(t *testing.T) {
	valid := []string{"crow", "crow_", "Crow[away]"}
	for _, nick := range valid {
		if err := ValidateNick(nick); err != nil {
			t.Errorf("ValidateNick(%q) = %v, want nil", nick, err)
		}
	}

	invalid := []string{"", "9crow", "cr ow", "#crow"}
	for _, nick := range invalid {
		if err := ValidateNick(nick); err == nil {
			t.Errorf("ValidateNick(%q) = nil, want error", nick)
		}
	}
}

func TestValidateServerAddress(t *testing.T) {
	host, port, err := ValidateServerAddress("irc.example.org:6697")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "irc.example.org" || port != 6697 {
		t.Fatalf("got %s:%d", host, port)
	}

	host, port, err = ValidateServerAddress("irc.example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "irc.example.org" || port != 6667 {
		t.Fatalf("default port: got %s:%d", host, port)
	}

	for _, addr := range []string{"", ":6667", "host:notaport", "host:0", "host:70000"} {
		if _, _, err := ValidateServerAddress(addr); err == nil {
			t.Errorf("ValidateServerAddress(%q) = nil, want error", addr)
		}
	}
}
