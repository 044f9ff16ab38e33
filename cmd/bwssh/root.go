package main

import (
	"os"

	clilib "github.com/bwssh/bwssh/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bwssh",
	Short: "Load SSH keys into ssh-agent with passphrases from Bitwarden",
	Long: `bwssh: unlock your SSH keys with passphrases kept in Bitwarden.

The passphrases are read from the items of one Bitwarden folder. A mapping
file pairs each item id with a private key path, and every mapped key is
added to the running ssh-agent. The vault is locked again when bwssh exits.

Configuration is read from $BWSSH_CONFIG or $XDG_CONFIG_HOME/bwssh/config.
An existing session in $BW_SESSION is reused.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stderr := cmd.ErrOrStderr()
		cli, err := clilib.NewCLI(clilib.Options{
			ConfigPath:  os.Getenv(EnvConfig),
			Session:     os.Getenv(EnvSession),
			AgentSocket: os.Getenv(EnvAgentSocket),
			Logger:      newLogger(stderr, globalOpts.Debug),
			Stdin:       os.Stdin,
			Stderr:      stderr,
		})
		if err != nil {
			return err
		}

		_, err = cli.Run(cmd.Context())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Debug, "debug", "d", false, "Print debug output")
}
