package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
	"github.com/aparcar/daisyway/infrastructure/etsi014"
	"github.com/aparcar/daisyway/infrastructure/logging"
	"github.com/aparcar/daisyway/infrastructure/net/tcp"
	"github.com/aparcar/daisyway/infrastructure/osk"
)

// deadmanGraceSeconds is added to the rekey interval to get the deadman's
// erase_after: a round is allowed to run long by this much before its key
// is treated as stale.
const deadmanGraceSeconds = 30

// Daisyway is a fully wired, ready-to-run instance built from a Config.
type Daisyway struct {
	Participant *tcp.Participant
	Deadman     *osk.OskDeadman
}

// BuildFromConfig validates cfg and constructs every adapter it names.
func BuildFromConfig(cfg Config, logger application.Logger) (*Daisyway, error) {
	rekeyInterval := cfg.Etsi014.IntervalSecs
	if rekeyInterval == 0 {
		rekeyInterval = keycrypto.DefaultRekeyIntervalSeconds
	}
	logger.Infof("rekey interval: %ds", rekeyInterval)

	psk, err := loadPSK(cfg.Peer.PskFile, logger)
	if err != nil {
		return nil, err
	}

	localPeerID, err := decodePeerID(cfg.WireGuard.LocalPeerID, "local")
	if err != nil {
		return nil, err
	}
	remotePeerID, err := decodePeerID(cfg.WireGuard.RemotePeerID, "remote")
	if err != nil {
		return nil, err
	}

	params := keycrypto.ProtocolParameters{
		PSK:          psk,
		LocalPeerID:  localPeerID,
		RemotePeerID: remotePeerID,
	}

	qkdClient, err := etsi014.NewClient(cfg.Etsi014)
	if err != nil {
		return nil, fmt.Errorf("config: failed to build ETSI014 client: %w", err)
	}

	eraseAfter := time.Duration(rekeyInterval+deadmanGraceSeconds) * time.Second
	deadman, err := buildOskHandler(cfg, remotePeerID, eraseAfter, logger)
	if err != nil {
		return nil, err
	}

	participant, err := buildParticipant(cfg, params, qkdClient, deadman, logger, time.Duration(rekeyInterval)*time.Second)
	if err != nil {
		return nil, err
	}

	return &Daisyway{Participant: participant, Deadman: deadman}, nil
}

func loadPSK(pskFile *string, logger application.Logger) (keycrypto.Key, error) {
	if pskFile == nil {
		logger.Infof("no PSK file supplied; using zero PSK")
		return keycrypto.Key{}, nil
	}

	logger.Infof("loading PSK file from %s", *pskFile)
	raw, err := os.ReadFile(*pskFile)
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("config: could not load PSK file %s: %w", *pskFile, err)
	}

	trimmed := strings.TrimSuffix(string(raw), "\n")
	psk, err := decodeKey(trimmed)
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("config: could not decode PSK file %s: %w", *pskFile, err)
	}
	return psk, nil
}

func decodePeerID(encoded, which string) (keycrypto.Key, error) {
	key, err := decodeKey(encoded)
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("config: could not decode WireGuard %s peer id %q: %w", which, encoded, err)
	}
	return key, nil
}

func decodeKey(encoded string) (keycrypto.Key, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return keycrypto.Key{}, err
	}
	if len(raw) != keycrypto.KeyLength {
		return keycrypto.Key{}, fmt.Errorf("decoded key has length %d, want %d", len(raw), keycrypto.KeyLength)
	}
	var key keycrypto.Key
	copy(key[:], raw)
	return key, nil
}

func buildOskHandler(cfg Config, remotePeerID keycrypto.Key, eraseAfter time.Duration, logger application.Logger) (*osk.OskDeadman, error) {
	switch {
	case cfg.WireGuard.Interface == nil && cfg.Outfile == nil:
		return nil, fmt.Errorf("config: you need to specify either the wireguard.interface or outfile.path configuration option")
	case cfg.WireGuard.Interface != nil && cfg.Outfile != nil:
		return nil, fmt.Errorf("config: you can not specify both the wireguard.interface and outfile.path configuration options")
	case cfg.Outfile != nil:
		logger.Infof("using outfile as key handler, storing key in %s", cfg.Outfile.Path)
		path := cfg.Outfile.Path
		return osk.StartDeadman(eraseAfter, logger, func() application.OskHandler {
			return osk.NewOutfileOskHandler(path, logger)
		}), nil
	default:
		iface := *cfg.WireGuard.Interface
		logger.Infof("using wireguard as key handler, injecting PSK into interface %s for peer %s", iface, cfg.WireGuard.RemotePeerID)
		return osk.StartDeadman(eraseAfter, logger, func() application.OskHandler {
			handler, err := osk.NewWireGuardOskHandler(iface, remotePeerID, logger)
			if err != nil {
				panic(fmt.Sprintf("config: could not start WireGuard key handler: %v", err))
			}
			return handler
		}), nil
	}
}

func buildParticipant(
	cfg Config,
	params keycrypto.ProtocolParameters,
	qkdClient application.QkdClient,
	oskHandler application.OskHandler,
	logger application.Logger,
	rekeyInterval time.Duration,
) (*tcp.Participant, error) {
	switch {
	case cfg.Peer.Endpoint != nil && cfg.Peer.Listen != nil:
		return nil, fmt.Errorf("config: peer configuration must specify exactly one of endpoint or listen, not both")
	case cfg.Peer.Endpoint != nil:
		return &tcp.Participant{
			Role:       tcp.RoleClient,
			Endpoint:   *cfg.Peer.Endpoint,
			Params:     params,
			QkdClient:  qkdClient,
			OskHandler: oskHandler,
			Logger:     logger,
		}, nil
	case cfg.Peer.Listen != nil:
		return &tcp.Participant{
			Role:          tcp.RoleServer,
			ListenAddr:    *cfg.Peer.Listen,
			Params:        params,
			QkdClient:     qkdClient,
			OskHandler:    oskHandler,
			Logger:        logger,
			RekeyInterval: rekeyInterval,
		}, nil
	default:
		return nil, fmt.Errorf("config: peer configuration must specify exactly one of endpoint or listen")
	}
}

// NewLogger is a small convenience wrapper so callers don't need to know
// which logging package to import.
func NewLogger() application.Logger {
	return logging.NewLogLogger()
}
