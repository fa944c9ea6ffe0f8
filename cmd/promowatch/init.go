package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const configTemplate = `version: "1"

modules:
  keywords.file:
    path: keywords.txt

  notifier.telegram:
    token: %q
    recipient: %d

  source.bridge:
    url: %q
    self_id: %d

  history.sqlite:
    path: history.db
`

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = defaultConfigTarget()
			}

			if _, err := os.Stat(output); err == nil {
				var overwrite bool
				confirm := huh.NewConfirm().
					Title(fmt.Sprintf("%s already exists. Overwrite?", output)).
					Value(&overwrite)
				if err := confirm.Run(); err != nil {
					return err
				}
				if !overwrite {
					fmt.Println("Aborted.")
					return nil
				}
			}

			var (
				token     string
				recipient string
				bridgeURL string
				selfID    string
			)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Telegram bot token").
						Description("Create a bot with @BotFather and paste its token.").
						EchoMode(huh.EchoModePassword).
						Value(&token).
						Validate(validateToken),
					huh.NewInput().
						Title("Your Telegram user ID").
						Description("Numeric ID of the account that receives alerts and issues commands.").
						Value(&recipient).
						Validate(validateID),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("Bridge websocket URL").
						Description("Endpoint of the bridge process streaming chat events.").
						Placeholder("ws://127.0.0.1:9000/events").
						Value(&bridgeURL).
						Validate(validateBridgeURL),
					huh.NewInput().
						Title("Watched account user ID").
						Description("Used to skip the account's own messages. Leave 0 to disable.").
						Value(&selfID).
						Validate(validateOptionalID),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			recipientID, _ := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
			accountID, _ := strconv.ParseInt(strings.TrimSpace(selfID), 10, 64)

			content := fmt.Sprintf(configTemplate,
				strings.TrimSpace(token),
				recipientID,
				strings.TrimSpace(bridgeURL),
				accountID,
			)

			if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(output, []byte(content), 0o600); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Printf("Wrote %s\n", output)
			fmt.Println("Run 'promowatch start' to begin watching.")
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Destination path (default: XDG config dir)")
	return cmd
}

// defaultConfigTarget is where init writes when no --output is given:
// $XDG_CONFIG_HOME/promowatch/promowatch.yaml or its ~/.config fallback.
func defaultConfigTarget() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "promowatch", "promowatch.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "promowatch.yaml"
	}
	return filepath.Join(home, ".config", "promowatch", "promowatch.yaml")
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("token is required")
	}
	if !strings.Contains(s, ":") {
		return errors.New("token should look like 123456:ABC-DEF...")
	}
	return nil
}

func validateID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return errors.New("enter a positive numeric ID")
	}
	return nil
}

func validateOptionalID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("enter a numeric ID, or 0 to disable")
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return errors.New("enter a numeric ID, or 0 to disable")
	}
	return nil
}

func validateBridgeURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errors.New("enter a ws:// or wss:// URL")
	}
	return nil
}
