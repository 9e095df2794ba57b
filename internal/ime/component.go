package ime

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Component identity announced to ibus-daemon.
const (
	BusName       = "org.freedesktop.IBus.SKKIME"
	EngineVersion = "1.0.0"
	DefaultLayout = "jp"
)

// Component is the IBus component description ibus-daemon reads from its
// component directory.
type Component struct {
	XMLName     xml.Name          `xml:"component"`
	Name        string            `xml:"name"`
	Description string            `xml:"description"`
	Exec        string            `xml:"exec"`
	Version     string            `xml:"version"`
	Author      string            `xml:"author"`
	License     string            `xml:"license"`
	Textdomain  string            `xml:"textdomain"`
	Engines     []ComponentEngine `xml:"engines>engine"`
}

// ComponentEngine is one engine of a component.
type ComponentEngine struct {
	Name        string `xml:"name"`
	Language    string `xml:"language"`
	License     string `xml:"license"`
	Author      string `xml:"author"`
	Layout      string `xml:"layout"`
	LongName    string `xml:"longname"`
	Description string `xml:"description"`
	Rank        int    `xml:"rank"`
	Symbol      string `xml:"symbol"`
}

// NewComponent describes a single SKK engine launched as execPath --ibus.
func NewComponent(engineName, layout, execPath string) *Component {
	if layout == "" {
		layout = DefaultLayout
	}
	return &Component{
		Name:        BusName,
		Description: "SKK Japanese input method",
		Exec:        execPath + " --ibus",
		Version:     EngineVersion,
		Author:      "skkime",
		License:     "MIT",
		Textdomain:  "skkime",
		Engines: []ComponentEngine{{
			Name:        engineName,
			Language:    "ja",
			License:     "MIT",
			Author:      "skkime",
			Layout:      layout,
			LongName:    "SKK (" + engineName + ")",
			Description: "Kana-kanji conversion with SKK dictionaries",
			Rank:        50,
			Symbol:      "あ",
		}},
	}
}

// XML renders the component file.
func (c *Component) XML() ([]byte, error) {
	body, err := xml.MarshalIndent(c, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal component: %w", err)
	}
	out := append([]byte(`<?xml version="1.0" encoding="utf-8"?>`+"\n"), body...)
	return append(out, '\n'), nil
}

// ComponentPath returns where the component file of engineName lives in dir.
func ComponentPath(dir, engineName string) string {
	return filepath.Join(dir, engineName+".xml")
}

// InstallComponent writes c into dir and returns the file path.
func InstallComponent(dir string, c *Component) (string, error) {
	if len(c.Engines) == 0 {
		return "", errors.New("component has no engines")
	}
	data, err := c.XML()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create component directory: %w", err)
	}
	path := ComponentPath(dir, c.Engines[0].Name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write component: %w", err)
	}
	return path, nil
}

// UninstallComponent removes the component file. A missing file is not an
// error.
func UninstallComponent(dir, engineName string) error {
	err := os.Remove(ComponentPath(dir, engineName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsInstalled reports whether the component file exists.
func IsInstalled(dir, engineName string) bool {
	_, err := os.Stat(ComponentPath(dir, engineName))
	return err == nil
}

// RestartIBus asks the daemon to rescan its components.
func RestartIBus() error {
	if _, err := exec.LookPath("ibus"); err != nil {
		return fmt.Errorf("ibus not found: %w", err)
	}
	return exec.Command("ibus", "restart").Run()
}

// ActivateEngine makes engineName the current IBus engine.
func ActivateEngine(engineName string) error {
	if err := exec.Command("ibus", "engine", engineName).Run(); err != nil {
		return fmt.Errorf("select engine %s: %w", engineName, err)
	}
	return nil
}
