// Package wizard implements the interactive bubbletea program behind
// `daisyway configure`: it walks an operator through the fields of a
// daisyway.toml and writes the result out.
package wizard

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aparcar/daisyway/infrastructure/config"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	promptStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	answeredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type stepKind int

const (
	stepText stepKind = iota
	stepSelect
)

// step is one question in the wizard. skip lets later steps depend on
// earlier answers (e.g. the TLS-detail steps only show up for the TLS
// mode that needs them).
type step struct {
	key      string
	kind     stepKind
	prompt   string
	help     string
	options  []string
	skip     func(answers map[string]string) bool
	validate func(value string) error
}

func allSteps() []step {
	return []step{
		{
			key:    "role",
			kind:   stepSelect,
			prompt: "Which role does this instance play?",
			help:   "\"listen\" accepts the incoming TCP connection; \"endpoint\" dials out to a peer.",
			options: []string{"listen (server)", "endpoint (client)"},
		},
		{
			key:    "listen",
			kind:   stepText,
			prompt: "Address to listen on",
			help:   "host:port, e.g. 0.0.0.0:7777",
			skip:   func(a map[string]string) bool { return a["role"] != "listen (server)" },
		},
		{
			key:    "endpoint",
			kind:   stepText,
			prompt: "Peer address to dial",
			help:   "host:port, e.g. peer.example.net:7777",
			skip:   func(a map[string]string) bool { return a["role"] != "endpoint (client)" },
		},
		{
			key:    "self_public_key",
			kind:   stepText,
			prompt: "This interface's WireGuard public key (base64)",
		},
		{
			key:    "peer_public_key",
			kind:   stepText,
			prompt: "Peer's WireGuard public key (base64)",
		},
		{
			key:  "psk_file",
			kind: stepText,
			prompt: "Path to an initial pre-shared key file",
			help:   "Leave empty to start from an all-zero PSK.",
		},
		{
			key:    "etsi014_url",
			kind:   stepText,
			prompt: "ETSI GS QKD 014 base URL",
			help:   "e.g. https://qkd-device.local:8443 (the /api/v1/keys/... path is appended)",
		},
		{
			key:    "etsi014_remote_sae_id",
			kind:   stepText,
			prompt: "Remote SAE id",
		},
		{
			key:  "etsi014_interval_secs",
			kind: stepText,
			prompt: "Rekey interval, in seconds",
			help:   fmt.Sprintf("Leave empty to use the default (%ds). The listen role rekeys at this interval; both roles erase the key if none arrives within it plus 30s.", 120),
			validate: func(v string) error {
				if v == "" {
					return nil
				}
				_, err := strconv.Atoi(v)
				return err
			},
		},
		{
			key:    "tls_mode",
			kind:   stepSelect,
			prompt: "TLS posture for the ETSI-014 connection",
			options: []string{
				"system roots",
				"pinned CA certificate",
				"mutual TLS (client certificate)",
				"insecure: accept SAN mismatch only",
			},
		},
		{
			key:  "tls_cacert",
			kind: stepText,
			prompt: "Path to the CA certificate file",
			skip: func(a map[string]string) bool {
				return a["tls_mode"] == "system roots"
			},
		},
		{
			key:  "tls_cert",
			kind: stepText,
			prompt: "Path to the client certificate file",
			skip: func(a map[string]string) bool {
				return a["tls_mode"] != "mutual TLS (client certificate)"
			},
		},
		{
			key:  "tls_key",
			kind: stepText,
			prompt: "Path to the client private key file",
			skip: func(a map[string]string) bool {
				return a["tls_mode"] != "mutual TLS (client certificate)"
			},
		},
		{
			key:    "sink",
			kind:   stepSelect,
			prompt: "Where should the negotiated key go?",
			options: []string{"wireguard interface", "plain output file"},
		},
		{
			key:  "wireguard_interface",
			kind: stepText,
			prompt: "WireGuard interface name",
			help:   "e.g. wg0",
			skip:   func(a map[string]string) bool { return a["sink"] != "wireguard interface" },
		},
		{
			key:  "outfile_path",
			kind: stepText,
			prompt: "Output file path",
			help:   "e.g. /var/run/daisyway/osk",
			skip:   func(a map[string]string) bool { return a["sink"] != "plain output file" },
		},
		{
			key:    "output_path",
			kind:   stepText,
			prompt: "Write configuration to",
		},
	}
}

type model struct {
	steps   []step
	cursor  int
	answers map[string]string
	ti      textinput.Model
	sel     int
	err     error
	done    bool
}

func newModel(outputPath string) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	m := model{
		steps:   allSteps(),
		answers: map[string]string{},
		ti:      ti,
	}
	m.answers["output_path"] = outputPath
	m.enterStep()
	return m
}

func (m *model) currentStep() *step {
	return &m.steps[m.cursor]
}

// enterStep skips past any steps whose Skip predicate is satisfied and
// primes the input widget for the step it lands on.
func (m *model) enterStep() {
	for m.cursor < len(m.steps) {
		s := m.steps[m.cursor]
		if s.skip != nil && s.skip(m.answers) {
			m.cursor++
			continue
		}
		break
	}
	if m.cursor >= len(m.steps) {
		m.done = true
		return
	}
	s := m.currentStep()
	if s.kind == stepText {
		m.ti.SetValue(m.answers[s.key])
		m.ti.Placeholder = s.help
		m.ti.CursorEnd()
	} else {
		m.sel = 0
		if prev, ok := m.answers[s.key]; ok {
			for i, o := range s.options {
				if o == prev {
					m.sel = i
				}
			}
		}
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.err = fmt.Errorf("configuration cancelled")
		m.done = true
		return m, tea.Quit
	}

	s := m.currentStep()
	switch s.kind {
	case stepSelect:
		switch keyMsg.String() {
		case "up", "k":
			if m.sel > 0 {
				m.sel--
			}
		case "down", "j":
			if m.sel < len(s.options)-1 {
				m.sel++
			}
		case "enter":
			m.answers[s.key] = s.options[m.sel]
			m.cursor++
			m.enterStep()
		}
		return m, nil
	case stepText:
		if keyMsg.String() == "enter" {
			value := m.ti.Value()
			if s.validate != nil {
				if err := s.validate(value); err != nil {
					m.err = fmt.Errorf("%s: %w", s.key, err)
					return m, nil
				}
			}
			m.err = nil
			m.answers[s.key] = value
			m.cursor++
			m.enterStep()
			return m, nil
		}
		var cmd tea.Cmd
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}
	s := m.currentStep()

	view := titleStyle.Render("daisyway configure") + "\n\n"
	view += promptStyle.Render(s.prompt) + "\n"
	if s.help != "" {
		view += helpStyle.Render(s.help) + "\n"
	}
	view += "\n"

	switch s.kind {
	case stepSelect:
		for i, o := range s.options {
			if i == m.sel {
				view += cursorStyle.Render("> "+o) + "\n"
			} else {
				view += answeredStyle.Render("  "+o) + "\n"
			}
		}
	case stepText:
		view += m.ti.View() + "\n"
	}

	if m.err != nil {
		view += "\n" + answeredStyle.Render("error: "+m.err.Error()) + "\n"
	}
	view += "\n" + helpStyle.Render("enter to confirm · esc to cancel") + "\n"
	return view
}

// Run drives the wizard to completion and writes a daisyway.toml-shaped
// file to outputPath (overridden by the wizard's own "output_path" step
// if the operator changes it).
func Run(outputPath string) error {
	p := tea.NewProgram(newModel(outputPath))
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	m, ok := result.(model)
	if !ok {
		return fmt.Errorf("wizard: unexpected program result type %T", result)
	}
	if m.err != nil {
		return m.err
	}

	cfg, err := buildConfig(m.answers)
	if err != nil {
		return err
	}

	dest := m.answers["output_path"]
	if dest == "" {
		dest = outputPath
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("wizard: failed to create %s: %w", dest, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("wizard: failed to encode configuration: %w", err)
	}

	fmt.Printf("wrote configuration to %s\n", dest)
	return nil
}

func buildConfig(a map[string]string) (config.Config, error) {
	var cfg config.Config

	cfg.WireGuard.LocalPeerID = a["self_public_key"]
	cfg.WireGuard.RemotePeerID = a["peer_public_key"]

	if a["role"] == "listen (server)" {
		listen := a["listen"]
		cfg.Peer.Listen = &listen
	} else {
		endpoint := a["endpoint"]
		cfg.Peer.Endpoint = &endpoint
	}

	if psk := a["psk_file"]; psk != "" {
		cfg.Peer.PskFile = &psk
	}

	cfg.Etsi014.URL = a["etsi014_url"]
	cfg.Etsi014.RemoteSaeID = a["etsi014_remote_sae_id"]
	if v := a["etsi014_interval_secs"]; v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return config.Config{}, fmt.Errorf("wizard: invalid rekey interval %q: %w", v, err)
		}
		cfg.Etsi014.IntervalSecs = secs
	}

	switch a["tls_mode"] {
	case "pinned CA certificate":
		cfg.Etsi014.TLSCACert = a["tls_cacert"]
	case "mutual TLS (client certificate)":
		cfg.Etsi014.TLSCACert = a["tls_cacert"]
		cfg.Etsi014.TLSCert = a["tls_cert"]
		cfg.Etsi014.TLSKey = a["tls_key"]
	case "insecure: accept SAN mismatch only":
		cfg.Etsi014.TLSCACert = a["tls_cacert"]
		cfg.Etsi014.DangerAllowInsecureNoServerNameCertificates = true
	}

	switch a["sink"] {
	case "wireguard interface":
		iface := a["wireguard_interface"]
		cfg.WireGuard.Interface = &iface
	case "plain output file":
		cfg.Outfile = &config.OutfileConfig{Path: a["outfile_path"]}
	}

	return cfg, nil
}
