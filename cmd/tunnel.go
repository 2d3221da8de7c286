package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EO-DataHub/eodhp-directory-services/internal/appconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Open an SSH port-forward to the directory database",
	Long: `Forwards localhost:<tunnel.localPort> through <tunnel.sshHost> to
<tunnel.remoteHost>:<tunnel.remotePort>, so migrate and serve can reach a private database.`,
	Run: func(cmd *cobra.Command, args []string) {
		setLogging(logLevel)

		var err error
		appCfg, err = appconfig.LoadConfig(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := StartSSHTunnel(ctx, appCfg.Tunnel); err != nil {
			log.Fatal().Err(err).Msg("SSH tunnel failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(tunnelCmd)
}

// sshClientConfig builds the client configuration from the private key file.
func sshClientConfig(config appconfig.TunnelConfig) (*ssh.ClientConfig, error) {
	if config.SSHUser == "" || config.SSHHost == "" {
		return nil, errors.New("tunnel.sshUser and tunnel.sshHost are required")
	}
	if config.RemoteHost == "" || config.RemotePort == "" || config.LocalPort == "" {
		return nil, errors.New("tunnel.remoteHost, tunnel.remotePort and tunnel.localPort are required")
	}

	key, err := os.ReadFile(config.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}

	return &ssh.ClientConfig{
		User: config.SSHUser,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// TODO: verify against a known_hosts file once bastion host keys are published
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}, nil
}

// ForwardTraffic forwards traffic from local to remote host until the
// listener is closed.
func ForwardTraffic(localListener net.Listener, dial func(network, addr string) (net.Conn, error), remoteAddr string) {
	for {
		localConn, err := localListener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("Failed to accept local connection")
			continue
		}

		// Open a connection to the remote host
		remoteConn, err := dial("tcp", remoteAddr)
		if err != nil {
			log.Error().Err(err).Str("remote", remoteAddr).Msg("Failed to connect to remote host")
			localConn.Close()
			continue
		}

		// Forward data between local and remote connections
		go func() {
			defer localConn.Close()
			defer remoteConn.Close()

			go io.Copy(remoteConn, localConn)
			io.Copy(localConn, remoteConn)
		}()
	}
}

// StartSSHTunnel initializes the SSH tunnel and forwards traffic until ctx ends.
func StartSSHTunnel(ctx context.Context, config appconfig.TunnelConfig) error {
	sshConfig, err := sshClientConfig(config)
	if err != nil {
		return err
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(config.SSHHost, config.SSHPort), sshConfig)
	if err != nil {
		return fmt.Errorf("unable to connect to %s: %w", config.SSHHost, err)
	}
	defer client.Close()

	// Listen on the local port
	localListener, err := net.Listen("tcp", net.JoinHostPort("localhost", config.LocalPort))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		localListener.Close()
	}()

	remoteAddr := net.JoinHostPort(config.RemoteHost, config.RemotePort)
	log.Info().
		Str("local", localListener.Addr().String()).
		Str("remote", remoteAddr).
		Msg("SSH tunnel started")

	ForwardTraffic(localListener, client.Dial, remoteAddr)

	log.Info().Msg("SSH tunnel closed")
	return nil
}
