package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/libp2p-handshake/internal/identity"
	"github.com/gosuda/libp2p-handshake/internal/manager"
	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

const (
	identityKeyPath = "../ed25519.pem"
	peerIDOutPath   = "../peerid"
)

var rootCmd = &cobra.Command{
	Use:   "handshake-initiator",
	Short: "Establishes one outbound libp2p Noise XX handshake and holds the connection open",
	RunE:  run,
}

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("handshake-initiator failed")
	}
}

func run(cmd *cobra.Command, args []string) error {
	target, ok := os.LookupEnv("HANDSHAKE_TARGET_ADDR")
	if !ok || target == "" {
		return wireerr.ErrInvalidInput
	}

	identitySK, err := identity.FromEd25519PEMFile(identityKeyPath)
	if err != nil {
		return err
	}

	mgr, err := manager.New(identitySK, target)
	if err != nil {
		return err
	}

	peerID, err := mgr.PeerID()
	if err != nil {
		return err
	}
	log.Debug().Str("peer_id", peerID.String()).Msg("derived local peer id")
	if err := os.WriteFile(peerIDOutPath, []byte(peerID.String()), 0o644); err != nil {
		return err
	}

	result, err := mgr.TCPConnect()
	if err != nil {
		return err
	}
	log.Info().
		Str("remote_peer", result.RemotePeer.String()).
		Str("muxer", result.MuxerAgreed).
		Msg("outbound handshake complete")
	return result.Stream.Close()
}
