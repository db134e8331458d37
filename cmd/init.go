package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/chatybot/internal/config"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default chat_config.toml",
		Long: `Write a commented chat_config.toml with one example model.

Edit the file to add your models, then export the API key environment
variable each model names (or put it in a .env file).

Examples:
  chatybot init
  chatybot init --dir ~/.config/chatybot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfigFile(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit it to add your models, then set the API key variables it names.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the config file into")

	return cmd
}
