//go:build linux

package ime

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

// IBusServer owns the connection to ibus-daemon and the exported factory.
type IBusServer struct {
	conn    *dbus.Conn
	factory *IBusFactory
	cfg     ServerConfig
	logger  *slog.Logger
}

// ServerConfig configures an IBusServer.
type ServerConfig struct {
	// Address is the IBus bus address; empty discovers it.
	Address string

	// BusName is the well-known name to own; empty uses BusName.
	BusName string

	Factory FactoryConfig
}

// NewIBusServer creates a server. Nothing is connected until Start.
func NewIBusServer(cfg ServerConfig) *IBusServer {
	if cfg.BusName == "" {
		cfg.BusName = BusName
	}
	logger := cfg.Factory.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IBusServer{cfg: cfg, logger: logger}
}

// Start connects to the IBus bus, owns the component name and exports the
// factory.
func (s *IBusServer) Start(ctx context.Context) error {
	addr := s.cfg.Address
	if addr == "" {
		var err error
		if addr, err = IBusAddress(); err != nil {
			return fmt.Errorf("locate ibus: %w", err)
		}
	}

	conn, err := dbus.Connect(addr, dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to ibus bus: %w", err)
	}

	reply, err := conn.RequestName(s.cfg.BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return errors.New("bus name already taken")
	}

	factory, err := NewIBusFactory(conn, s.cfg.Factory)
	if err != nil {
		conn.Close()
		return err
	}
	if err := conn.Export(factory, IBusFactoryPath, IBusFactoryInterface); err != nil {
		conn.Close()
		return fmt.Errorf("export factory: %w", err)
	}

	s.conn = conn
	s.factory = factory
	s.logger.Info("ibus engine started", "bus_name", s.cfg.BusName, "engine", s.cfg.Factory.EngineName)
	return nil
}

// Factory returns the exported factory, or nil before Start.
func (s *IBusServer) Factory() *IBusFactory {
	return s.factory
}

// Done is closed when the bus connection ends, for example when
// ibus-daemon exits.
func (s *IBusServer) Done() <-chan struct{} {
	if s.conn == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.conn.Context().Done()
}

// Stop commits live compositions and closes the connection.
func (s *IBusServer) Stop() error {
	if s.factory != nil {
		s.factory.FixateAll()
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.logger.Info("ibus engine stopped")
	return err
}

// IBusAddress returns the address of the running ibus-daemon: IBUS_ADDRESS
// if set, otherwise the address file the daemon writes for this display.
func IBusAddress() (string, error) {
	if addr := os.Getenv("IBUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	path, err := ibusAddressFile()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read ibus address file: %w", err)
	}
	return parseIBusAddressFile(data)
}

// ibusAddressFile returns $XDG_CONFIG_HOME/ibus/bus/<machine-id>-<host>-<display>.
func ibusAddressFile() (string, error) {
	machineID, err := readMachineID()
	if err != nil {
		return "", err
	}
	host, display, err := displayName(os.Getenv("DISPLAY"), os.Getenv("WAYLAND_DISPLAY"))
	if err != nil {
		return "", err
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "ibus", "bus", machineID+"-"+host+"-"+display), nil
}

func readMachineID() (string, error) {
	for _, p := range []string{"/var/lib/dbus/machine-id", "/etc/machine-id"} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("machine id not found")
}

// displayName splits an X11 display such as "host:0.0" into host and
// display number. Wayland sessions use the socket name with host "unix".
func displayName(x11, wayland string) (string, string, error) {
	if x11 == "" {
		if wayland == "" {
			return "", "", errors.New("neither DISPLAY nor WAYLAND_DISPLAY is set")
		}
		return "unix", wayland, nil
	}
	host, rest, ok := strings.Cut(x11, ":")
	if !ok {
		return "", "", fmt.Errorf("malformed DISPLAY %q", x11)
	}
	if host == "" {
		host = "unix"
	}
	num, _, _ := strings.Cut(rest, ".")
	if num == "" {
		return "", "", fmt.Errorf("malformed DISPLAY %q", x11)
	}
	return host, num, nil
}

func parseIBusAddressFile(data []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if v, ok := strings.CutPrefix(line, "IBUS_ADDRESS="); ok && v != "" {
			return v, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("IBUS_ADDRESS not found in address file")
}
