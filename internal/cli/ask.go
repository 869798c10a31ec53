package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		user    string
		session string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the help desk a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.Chat.Ask(cmd.Context(), user, session, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reply.Response)
			if verbose {
				fmt.Fprintf(out, "\nmodel: %s  in scope: %t\n", reply.ModelUsed, reply.InScope)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "cli", "user id recorded on the chat log")
	cmd.Flags().StringVar(&session, "session", "", "session id recorded on the chat log")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the model used")

	return cmd
}
