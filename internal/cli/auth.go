package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/api"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate against the platform",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create an account and log in",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Session.Logout(cmd.Context())
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated principal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.Session.Validate(cmd.Context(), true)
		if err != nil {
			notifyExpired()
			return fmt.Errorf("validate session: %w", err)
		}
		if !sess.Authenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Printf("%s (%s)\n", sess.Principal.Username, sess.Principal.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	creds, err := promptCredentials(args)
	if err != nil {
		return err
	}
	sess, err := app.Session.Login(cmd.Context(), creds)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Logged in as %s.\n", sess.Principal.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	creds, err := promptCredentials(args)
	if err != nil {
		return err
	}
	sess, err := app.Session.Register(cmd.Context(), creds)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("Account created, logged in as %s.\n", sess.Principal.Username)
	return nil
}

func promptCredentials(args []string) (api.Credentials, error) {
	var creds api.Credentials
	if len(args) == 1 {
		creds.Username = args[0]
	} else {
		fmt.Print("Username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return creds, fmt.Errorf("read username: %w", err)
		}
		creds.Username = strings.TrimSpace(line)
	}
	if creds.Username == "" {
		return creds, fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return creds, fmt.Errorf("read password: %w", err)
	}
	creds.Password = string(pw)
	return creds, nil
}
