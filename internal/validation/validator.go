package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateChannelName validates an IRC channel name
func ValidateChannelName(channel string) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return fmt.Errorf("channel name is required")
	}
	// IRC channels must start with #, &, +, or !
	if channel[0] != '#' && channel[0] != '&' && channel[0] != '+' && channel[0] != '!' {
		return fmt.Errorf("channel name must start with #, &, +, or !")
	}
	// Channel names have length limits (typically 50 chars, but varies by server)
	if len(channel) > 200 {
		return fmt.Errorf("channel name too long (max 200 characters)")
	}
	// Check for invalid characters
	if strings.ContainsAny(channel, " \x00\x07\x0A\x0D,") {
		return fmt.Errorf("channel name contains invalid characters")
	}
	return nil
}

// ValidateNick validates an IRC nickname
func ValidateNick(nick string) error {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return fmt.Errorf("nickname is required")
	}
	if len(nick) > 32 {
		return fmt.Errorf("nickname too long (max 32 characters)")
	}
	if strings.ContainsAny(nick, " \x00\x07\x0A\x0D,#&!+:") {
		return fmt.Errorf("nickname contains invalid characters")
	}
	if nick[0] >= '0' && nick[0] <= '9' {
		return fmt.Errorf("nickname must not start with a digit")
	}
	return nil
}

// ValidateServerAddress validates a host[:port] server address and returns
// host and port separately. A missing port defaults to 6667.
func ValidateServerAddress(address string) (string, int, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, fmt.Errorf("server address is required")
	}
	host := address
	port := 6667
	if i := strings.LastIndex(address, ":"); i >= 0 {
		host = address[:i]
		p, err := strconv.Atoi(address[i+1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", address[i+1:])
		}
		port = p
	}
	if host == "" {
		return "", 0, fmt.Errorf("server address is required")
	}
	if port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("port must be between 1 and 65535")
	}
	return host, port, nil
}
