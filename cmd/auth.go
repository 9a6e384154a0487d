package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/auth"
)

// cliSession keys the session the auth command acts in.
const cliSession = "cli"

func (c *cli) newAuthCommand() *cobra.Command {
	modes := make([]string, 0, len(auth.Modes))
	for _, m := range auth.Modes {
		modes = append(modes, m.String())
	}

	cmd := &cobra.Command{
		Use:   "auth <mode>",
		Short: "Run an account action against the configured provider",
		Long: `Run one account action the way the /auth page does. Actions that need
a signed-in user (send-verify, change-username) sign in with --email and
--password first.

Examples:
  syllabus auth sign-up --email a@b.c --username ada --password pw --password-confirm pw
  syllabus auth sign-in --email a@b.c --password pw
  syllabus auth verify --token <code from the email link>
  syllabus auth send-reset-password --email a@b.c
  syllabus auth reset-password --token <code> --password new --password-confirm new
  syllabus auth change-username --email a@b.c --password pw --username grace`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: modes,
		RunE:      c.runAuth,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("username", "", "Display name")
	cmd.Flags().String("password", "", "Password")
	cmd.Flags().String("password-confirm", "", "Password confirmation")
	cmd.Flags().String("token", "", "Action code from an emailed link")
	return cmd
}

func (c *cli) runAuth(cmd *cobra.Command, args []string) error {
	mode, err := auth.ParseMode(args[0])
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	provider, closeProvider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	flags := cmd.Flags()
	form := auth.Form{}
	form.Email, _ = flags.GetString("email")
	form.Username, _ = flags.GetString("username")
	form.Password, _ = flags.GetString("password")
	form.PasswordConfirm, _ = flags.GetString("password-confirm")
	token, _ := flags.GetString("token")

	ctx := cmd.Context()
	facade := auth.NewService(provider, auth.WithLogger(logger)).For(cliSession)
	if mode == auth.SendVerify || mode == auth.ChangeUsername {
		if _, err := facade.Perform(ctx, auth.SignIn, auth.Form{Email: form.Email, Password: form.Password}, ""); err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}
	}

	msg, err := facade.Perform(ctx, mode, form, token)
	if err != nil {
		return fmt.Errorf("%s failed: %w", mode, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, msg)
	state := facade.State().Current()
	fmt.Fprintf(out, "status: %s\n", state.AuthStatus())
	if state.Present() {
		fmt.Fprintf(out, "user:   %s <%s>\n", state.User.DisplayName, state.User.Email)
	}
	return nil
}
