package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	perr "trcli/internal/platform/errors"
)

func (a *App) loginCommand() *cobra.Command {
	var returnPath string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session cookies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.PasswordStdin {
				password, err := readLine(a.in)
				if err != nil {
					return perr.AuthFailedf("could not read the password from stdin: %v", err)
				}
				a.flags.Password = password
			}
			client := a.newClient()
			result, err := client.Login(cmd.Context(), returnPath)
			if err != nil {
				return err
			}
			p := Payload{
				"command":       "login",
				"mode":          "private",
				"generatedAt":   time.Now().UTC().Format(time.RFC3339),
				"queryId":       uuid.NewString(),
				"username":      client.Username(),
				"redirect":      result.Redirect,
				"hasAuthCookie": result.HasAuthCookie,
			}
			return a.write(p, func(w io.Writer, p Payload) {
				fmt.Fprintf(w, "Logged in as %s\n", p["username"])
				fmt.Fprintf(w, "Redirect: %s\n", p["redirect"])
			})
		},
	}
	cmd.Flags().StringVar(&returnPath, "return-path", "", "post-login redirect path (default /app/career/<username>)")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(*cobra.Command, []string) error {
			if err := a.newClient().ClearSession(); err != nil {
				return err
			}
			p := Payload{
				"command":     "logout",
				"generatedAt": time.Now().UTC().Format(time.RFC3339),
				"queryId":     uuid.NewString(),
				"ok":          true,
			}
			return a.write(p, func(w io.Writer, _ Payload) {
				fmt.Fprintln(w, "Session cleared.")
			})
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated member identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := a.newClient()
			p := Payload{
				"command":     "whoami",
				"generatedAt": time.Now().UTC().Format(time.RFC3339),
				"queryId":     uuid.NewString(),
			}
			info, err := client.MemberInfo(cmd.Context())
			if err != nil {
				p["loggedIn"] = false
				return a.write(p, func(w io.Writer, _ Payload) {
					fmt.Fprintln(w, "Not logged in. Run login, or use --target <username> for public mode.")
				})
			}
			p["loggedIn"] = true
			p["member"] = info
			return a.write(p, func(w io.Writer, _ Payload) {
				fmt.Fprintf(w, "Logged in as %s (member %d)\n", info.String("username"), info.Int("memberId"))
			})
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
